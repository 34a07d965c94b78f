package prompts

type PromptName string

const (
	PromptOutline              PromptName = "outline"
	PromptChapterContent       PromptName = "chapter_content"
	PromptChapterQuestions     PromptName = "chapter_questions"
	PromptContentFallback      PromptName = "content_fallback"
	PromptQuestionsFromContent PromptName = "questions_from_content"
)
