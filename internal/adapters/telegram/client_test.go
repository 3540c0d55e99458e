package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return newClientWithHost(srv.URL, "TOKEN", 2*time.Second), srv
}

func TestGetUpdates(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/getUpdates" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"offset":42`) {
			t.Errorf("offset missing from payload: %s", body)
		}
		io.WriteString(w, `{"ok":true,"result":[
			{"update_id":100,"message":{"message_id":1,"chat":{"id":7},"text":"привет","from":{"id":7}}},
			{"update_id":101,"callback_query":{"id":"cb1","data":"model_gemini-2.5-pro","from":{"id":7},"message":{"message_id":2,"chat":{"id":7}}}}
		]}`)
	})

	updates, err := c.GetUpdates(context.Background(), 42, 30)
	if err != nil {
		t.Fatalf("GetUpdates failed: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	if updates[0].Message == nil || updates[0].Message.Text != "привет" {
		t.Fatalf("unexpected first update: %#v", updates[0])
	}
	if updates[1].CallbackQuery == nil || updates[1].CallbackQuery.Data != "model_gemini-2.5-pro" {
		t.Fatalf("unexpected second update: %#v", updates[1])
	}
}

func TestSendMessageWithKeyboard(t *testing.T) {
	var gotBody string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		io.WriteString(w, `{"ok":true,"result":{"message_id":5,"chat":{"id":7}}}`)
	})

	kb := &ReplyKeyboard{
		Keyboard:       [][]KeyboardButton{{{Text: "Новый чат"}}},
		ResizeKeyboard: true,
	}
	msg, err := c.SendMessage(context.Background(), 7, "готово", &SendOptions{ReplyMarkup: kb})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if msg.MessageID != 5 {
		t.Fatalf("unexpected message id: %d", msg.MessageID)
	}
	if !strings.Contains(gotBody, `"keyboard"`) || !strings.Contains(gotBody, "Новый чат") {
		t.Fatalf("keyboard missing from payload: %s", gotBody)
	}
}

func TestSendMessageAPIError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ok":false,"description":"Bad Request: chat not found"}`)
	})

	_, err := c.SendMessage(context.Background(), 7, "hi", nil)
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected API error, got %v", err)
	}
}

func TestEditAndDeleteMessage(t *testing.T) {
	var paths []string
	var bodies []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		paths = append(paths, r.URL.Path)
		bodies = append(bodies, string(body))
		io.WriteString(w, `{"ok":true,"result":{}}`)
	})

	if err := c.EditMessageText(context.Background(), 7, 42, "✅ Выбрана модель: 2.5 Pro", nil); err != nil {
		t.Fatalf("EditMessageText failed: %v", err)
	}
	if err := c.DeleteMessage(context.Background(), 7, 43); err != nil {
		t.Fatalf("DeleteMessage failed: %v", err)
	}

	if len(paths) != 2 || !strings.HasSuffix(paths[0], "/editMessageText") || !strings.HasSuffix(paths[1], "/deleteMessage") {
		t.Fatalf("unexpected paths: %v", paths)
	}
	if !strings.Contains(bodies[0], `"message_id":42`) {
		t.Fatalf("edit payload missing message_id: %s", bodies[0])
	}
	if !strings.Contains(bodies[1], `"message_id":43`) {
		t.Fatalf("delete payload missing message_id: %s", bodies[1])
	}
}

func TestSendDocumentMultipart(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("not a multipart request: %v", err)
		}
		if got := r.FormValue("chat_id"); got != "7" {
			t.Errorf("chat_id = %q", got)
		}
		f, hdr, err := r.FormFile("document")
		if err != nil {
			t.Fatalf("document part missing: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "response.md" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		data, _ := io.ReadAll(f)
		if string(data) != "# Ответ" {
			t.Errorf("file content = %q", data)
		}
		io.WriteString(w, `{"ok":true,"result":{}}`)
	})

	err := c.SendDocument(context.Background(), 7, "response.md", []byte("# Ответ"), "📄 Исходный Markdown")
	if err != nil {
		t.Fatalf("SendDocument failed: %v", err)
	}
}

func TestDownloadAttachment(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/botTOKEN/getFile":
			var payload map[string]any
			json.NewDecoder(r.Body).Decode(&payload)
			if payload["file_id"] != "f-123" {
				t.Errorf("file_id = %v", payload["file_id"])
			}
			io.WriteString(w, `{"ok":true,"result":{"file_id":"f-123","file_path":"documents/a.pdf"}}`)
		case r.URL.Path == "/file/botTOKEN/documents/a.pdf":
			w.Write([]byte("pdf bytes"))
		default:
			http.NotFound(w, r)
		}
	})

	data, err := c.DownloadAttachment(context.Background(), "f-123")
	if err != nil {
		t.Fatalf("DownloadAttachment failed: %v", err)
	}
	if string(data) != "pdf bytes" {
		t.Fatalf("unexpected bytes: %q", data)
	}
}

func TestAnswerCallbackQuery(t *testing.T) {
	var gotBody string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		io.WriteString(w, `{"ok":true,"result":true}`)
	})

	if err := c.AnswerCallbackQuery(context.Background(), "cb1", "Готово"); err != nil {
		t.Fatalf("AnswerCallbackQuery failed: %v", err)
	}
	if !strings.Contains(gotBody, `"callback_query_id":"cb1"`) {
		t.Fatalf("callback id missing: %s", gotBody)
	}
}
