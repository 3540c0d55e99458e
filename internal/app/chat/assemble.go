package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/ntroshkin/gembot/internal/config"
	"github.com/ntroshkin/gembot/internal/domain"
	"github.com/ntroshkin/gembot/internal/observability"
)

// stagedFile is a downloaded attachment ready to join a request.
type stagedFile struct {
	Data     []byte
	MIMEType string
	Caption  string
	Name     string
}

// invoke assembles and issues one backend request, then persists the
// user/model turn pair. History replay and search tools are suppressed
// for the image-generation model, which has no accumulated-history
// contract. Turns are persisted only on full success so history never
// carries a user turn without its model counterpart.
func (s *Service) invoke(ctx context.Context, sess *domain.UserSession, parts []domain.Part, prompt string, hasMedia bool) (*Reply, error) {
	imageGen := sess.ActiveModel == config.ImageGenModel

	req := domain.GenerateRequest{
		Model:       sess.ActiveModel,
		Parts:       parts,
		ImageOutput: imageGen,
	}
	if !imageGen {
		history, err := s.history.ListTurns(ctx, sess.ID)
		if err != nil {
			return nil, err
		}
		req.History = history
		req.UseSearch = sess.SearchEnabled
	}

	callCtx := ctx
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	res, err := s.llm.Generate(callCtx, req)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("backend call failed",
			"user_id", sess.ID, "model", sess.ActiveModel, "error", err)
		return nil, err
	}

	text := res.Text
	if len(res.Sources) > 0 {
		text += formatSources(res.Sources)
	}

	now := s.now()
	userTurn := &domain.Turn{
		ID:            s.newID(),
		UserID:        sess.ID,
		Role:          domain.RoleUser,
		Content:       prompt,
		HasAttachment: hasMedia,
		CreatedAt:     now,
	}
	modelTurn := &domain.Turn{
		ID:            s.newID(),
		UserID:        sess.ID,
		Role:          domain.RoleModel,
		Content:       text,
		HasAttachment: len(res.Images) > 0,
		CreatedAt:     now.Add(1), // keeps the pair ordered under replay
	}
	if err := s.history.AppendTurns(ctx, userTurn, modelTurn); err != nil {
		return nil, err
	}

	return &Reply{Text: text, Images: res.Images}, nil
}

// stageContextFiles loads the standing file context for an immediate
// text request, bounded to the first FileContextLimit items. A file that
// fails to download is skipped; the remaining files proceed.
func (s *Service) stageContextFiles(ctx context.Context, sess *domain.UserSession) ([]stagedFile, error) {
	items, err := s.files.ListFileContexts(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if len(items) > config.FileContextLimit {
		items = items[:config.FileContextLimit]
	}

	log := observability.LoggerFromContext(ctx)

	var staged []stagedFile
	for _, item := range items {
		data, err := s.downloader.DownloadAttachment(ctx, item.FileRef)
		if err != nil {
			log.Warn("skipping context file", "user_id", sess.ID, "file", item.Name, "error", err)
			continue
		}
		staged = append(staged, stagedFile{
			Data:     data,
			MIMEType: item.MIMEType,
			Caption:  item.Caption,
			Name:     item.Name,
		})
	}
	return staged, nil
}

// filesToParts expands staged files into request parts, preserving the
// caption / bytes / filename-marker triple ordering per file.
func filesToParts(files []stagedFile) []domain.Part {
	var parts []domain.Part
	for _, f := range files {
		if f.Caption != "" {
			parts = append(parts, domain.Part{Text: f.Caption})
		}
		parts = append(parts, domain.Part{Data: f.Data, MIMEType: f.MIMEType})
		if f.Name != "" {
			parts = append(parts, domain.Part{Text: fileMarker(f.Name)})
		}
	}
	return parts
}

// combine turns the drained buffer into one ordered request. Consecutive
// text items collapse into a single paragraph-joined part; media items
// stay discrete, interleaved with their captions. A file that fails to
// download is skipped with an inline note and assembly continues.
func (s *Service) combine(ctx context.Context, items []*domain.BufferItem) (parts []domain.Part, prompt string, hasMedia bool) {
	log := observability.LoggerFromContext(ctx)

	var pending []string
	var promptParts []string

	flushPending := func() {
		if len(pending) == 0 {
			return
		}
		parts = append(parts, domain.Part{Text: strings.Join(pending, "\n\n")})
		pending = nil
	}

	for _, item := range items {
		switch item.Kind {
		case domain.BufferText:
			pending = append(pending, item.Content)
			promptParts = append(promptParts, item.Content)

		case domain.BufferPhoto, domain.BufferDocument:
			data, err := s.downloader.DownloadAttachment(ctx, item.Content)
			if err != nil {
				note := fmt.Sprintf("[Ошибка загрузки файла из буфера: %v]", err)
				log.Warn("buffered file failed to download", "file", item.FileName, "error", err)
				pending = append(pending, note)
				promptParts = append(promptParts, note)
				continue
			}

			flushPending()
			hasMedia = true

			if item.Caption != "" {
				parts = append(parts, domain.Part{Text: item.Caption})
				promptParts = append(promptParts, item.Caption)
			}
			mime := item.MIMEType
			if mime == "" {
				mime = "image/jpeg"
			}
			parts = append(parts, domain.Part{Data: data, MIMEType: mime})
			if item.Kind == domain.BufferDocument && item.FileName != "" {
				parts = append(parts, domain.Part{Text: fileMarker(item.FileName)})
			}
		}
	}
	flushPending()

	prompt = strings.Join(promptParts, "\n\n")
	if prompt == "" {
		prompt = defaultFlushPrompt
		parts = append(parts, domain.Part{Text: prompt})
	}
	return parts, prompt, hasMedia
}

func formatSources(sources []domain.Source) string {
	lines := make([]string, 0, len(sources))
	for i, src := range sources {
		lines = append(lines, fmt.Sprintf("%d. [%s](%s)", i+1, src.Title, src.URI))
	}
	return "\n\nИсточники:\n" + strings.Join(lines, "\n")
}

func fileMarker(name string) string {
	return fmt.Sprintf("(Файл: %s)", name)
}
