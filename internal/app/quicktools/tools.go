// Package quicktools defines the single-shot text transformation
// commands: each one wraps the user's text in a fixed system instruction
// and calls the backend once, outside of any conversation history.
package quicktools

import (
	"fmt"
	"sort"

	"github.com/ntroshkin/gembot/internal/config"
)

// Tool is one single-shot command definition.
type Tool struct {
	Name              string
	Description       string
	SystemInstruction string
	// Model overrides the tool's backend model; empty means the
	// platform default.
	Model string
	// ThinkingBudget, when set, caps the model's reasoning budget.
	// Zero disables reasoning entirely for latency-sensitive tools.
	ThinkingBudget *int32
	// SendsMarkdownFile marks tools whose raw markdown output is also
	// delivered as a downloadable .md document.
	SendsMarkdownFile bool
}

func budget(n int32) *int32 { return &n }

// Registry lists every available tool keyed by command name.
var Registry = map[string]Tool{
	"translate": {
		Name:        "translate",
		Description: "ru<>en Перевод текста",
		SystemInstruction: "You are a translator. Your task is to translate the provided text. " +
			"If the input text is in Russian, translate it to English. " +
			"If the input text is in any language other than Russian (including English), translate it to Russian. " +
			"Provide *only* the translated text, without any introduction, comments, or explanations.",
		ThinkingBudget: budget(0),
	},
	"prompt": {
		Name:        "prompt",
		Description: "✨ Улучшение промпта (запроса) для AI",
		SystemInstruction: "You are an expert prompt engineer. Improve the following user prompt to make it " +
			"more effective for generating creative text or images with AI models. Focus on " +
			"clarity, detail, and desired style. Provide only the improved prompt.",
	},
	"promptpro": {
		Name:        "promptpro",
		Description: "🚀 PRO Улучшение промпта (запроса) для AI",
		SystemInstruction: "You are an expert prompt engineer. Thoroughly analyze and significantly improve " +
			"the following user prompt for generating high-quality, creative text or images " +
			"with advanced AI models. Focus on adding detail, context, style hints, negative " +
			"prompts (if applicable), and specific instructions for the AI, while preserving " +
			"the user's core intent. Provide only the improved prompt.",
		Model: "gemini-2.5-pro",
	},
	"rewrite": {
		Name:        "rewrite",
		Description: "🎓 Переписать текст в академическом стиле (для диплома или курсовой)",
		SystemInstruction: "You are an academic rewriting assistant. Your task is to take the text provided " +
			"by the user and rewrite it completely. Preserve the original meaning and main " +
			"ideas of the text, but change sentence structure, vocabulary, and overall style. " +
			"The result must be written in a strict academic style, suitable for a scientific " +
			"publication, diploma thesis (VKR), or term paper. Avoid colloquialisms, slang, " +
			"abbreviations, and personal pronouns ('I', 'we'). Use precise terminology and " +
			"formal phrasing. Ensure the rewritten text maintains logical flow and coherence. " +
			"Return only the rewritten text. " +
			"If the text is not suitable for rewriting, return the exact phrase: `Этот текст не подходит для переписывания.`",
	},
	"simplify": {
		Name:        "simplify",
		Description: "💡 Упростить текст, сделать его понятнее",
		SystemInstruction: "You are a text simplification assistant. Your task is to take the text provided " +
			"by the user and rewrite it using the simplest and most understandable language " +
			"possible. Use simple vocabulary, short sentences, and avoid complex terminology " +
			"or jargon. If a complex term is necessary, try to explain it contextually. The " +
			"goal is to make the text accessible to someone without specialized knowledge. " +
			"Return only the simplified text.",
	},
	"elaborate": {
		Name:        "elaborate",
		Description: "📚 Расширить текст, добавить детали (академ. стиль)",
		SystemInstruction: "You are an academic text expansion assistant. Your task is to take the text " +
			"provided by the user and expand upon it by adding details, explanations, examples " +
			"(if possible), or additional arguments to make it more complete and in-depth. " +
			"Maintain the strict academic style suitable for a scientific work. The expanded " +
			"text should logically develop the original idea without introducing unrelated topics. " +
			"Return only the expanded text.",
	},
	"formal": {
		Name:        "formal",
		Description: "👔 Сделать текст более формальным и деловым",
		SystemInstruction: "You are a text formalization assistant. Your task is to take the text provided " +
			"by the user and rewrite it in a formal, polite, and professional tone. Avoid " +
			"slang, colloquialisms, abbreviations, and familiarity. Use full word forms and " +
			"official phrasing, suitable for business correspondence or official documents. " +
			"Return only the formal text.",
	},
	"proofread": {
		Name:        "proofread",
		Description: "✍️ Коррекция грамматики, орфографии, пунктуации",
		SystemInstruction: "You are a text proofreader. Carefully read the text provided by the user and correct " +
			"only objective grammatical, spelling, and punctuation errors. Do not change the " +
			"meaning, sentence structure, or overall style of the text unless a change is strictly " +
			"necessary to fix an identified error. Return *only* the corrected text, without any " +
			"comments or explanations about the errors.",
	},
	"list": {
		Name:        "list",
		Description: "📋 Преобразовать текст в маркированный или нумерованный список",
		SystemInstruction: "You are a list formatting assistant. Examine the text provided by the user. If " +
			"the text contains elements that can logically be presented as a list (e.g., a " +
			"list of items, steps, ideas), convert it into a list using Markdown format. " +
			"Use a numbered list (`1. `, `2. `) for sequential steps or ordered items. " +
			"Use a bulleted list (`- `) for unordered items. Preserve the original content " +
			"of each list item. If the text is not suitable for structuring as a list, " +
			"return the exact phrase: `Этот текст не подходит для преобразования в список.` " +
			"Otherwise, return *only* the formatted list.",
		ThinkingBudget: budget(0),
	},
	"table": {
		Name:        "table",
		Description: "📊 Преобразовать текст в таблицу Markdown",
		SystemInstruction: "You are a data structuring assistant. Analyze the provided text to identify data " +
			"that can be logically organized into a table. Look for repeated structures, lists " +
			"of items with similar attributes, or explicit mentions of tabular data. If suitable " +
			"data is found, create a table using Markdown syntax. Ensure the table has clear " +
			"headers based on the data attributes and correctly aligned data rows. Make reasonable " +
			"assumptions for headers if they are not explicitly stated but implied by the data. " +
			"If the text does not contain information that can be reasonably structured into a " +
			"table, return the exact phrase: `Этот текст не подходит для представления в виде таблицы.` " +
			"Otherwise, return *only* the Markdown table.",
		Model: "gemini-2.5-pro",
	},
	"todo": {
		Name:        "todo",
		Description: "☑️ Создать список задач (todo list) из текста",
		SystemInstruction: "You are a task list manager. The user will provide text describing or listing " +
			"their tasks/todos. Your task is to extract each individual task from this text " +
			"and present it as a formatted todo list using Markdown syntax. Each task should " +
			"be a separate list item. The format for each item is: `- [ ] Task description`. " +
			"The checkbox `[ ]` must be *empty* for every item. Return *only* this formatted " +
			"list of tasks, without any introductory or concluding phrases. " +
			"If the text does not contain tasks, return the exact phrase: " +
			"`Этот текст не подходит для представления в виде списка задач.`",
		ThinkingBudget:    budget(0),
		SendsMarkdownFile: true,
	},
	"markdown": {
		Name:        "markdown",
		Description: "#️⃣ Добавить базовое Markdown форматирование",
		SystemInstruction: "You are a Markdown formatting assistant. Take the text provided by the user and " +
			"apply basic Markdown formatting elements where appropriate to improve readability " +
			"and structure. Use: Bold text (**text**) for emphasizing key terms or headings. " +
			"Italic text (*text*) for subtle emphasis or titles. Headings (# Heading, ## Subheading) " +
			"for clear section breaks in longer, structured text. Lists (- item or 1. item) " +
			"for enumerations. Apply formatting thoughtfully only where it significantly improves " +
			"readability or structure. Do not add formatting arbitrarily or excessively. " +
			"Return the formatted text.",
		ThinkingBudget:    budget(0),
		SendsMarkdownFile: true,
	},
	"dayplanner": {
		Name:              "dayplanner",
		Description:       "📅 Умный планировщик дня (задачи, еда)",
		SystemInstruction: dayPlannerInstruction,
		Model:             "gemini-2.5-pro",
		SendsMarkdownFile: true,
	},
}

// Names returns the command names in stable alphabetical order.
func Names() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the tool for a command name.
func Lookup(name string) (Tool, bool) {
	t, ok := Registry[name]
	return t, ok
}

// Validate checks the registry for definition mistakes. Called once at
// startup so a bad entry fails the process instead of a user command.
func Validate() error {
	for name, t := range Registry {
		if t.Name != name {
			return fmt.Errorf("quicktools: tool %q has mismatched name %q", name, t.Name)
		}
		if t.SystemInstruction == "" {
			return fmt.Errorf("quicktools: tool %q has no system instruction", name)
		}
		if t.Description == "" {
			return fmt.Errorf("quicktools: tool %q has no description", name)
		}
		if t.Model != "" && !config.IsKnownModel(t.Model) {
			return fmt.Errorf("quicktools: tool %q uses unknown model %q", name, t.Model)
		}
	}
	return nil
}
