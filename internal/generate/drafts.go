package generate

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	KindLesson = "lesson"
	KindQuiz   = "quiz"
)

type OptionDraft struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

type QuestionDraft struct {
	Type    string        `json:"type"` // singleChoice | trueFalse
	Prompt  string        `json:"prompt"`
	Options []OptionDraft `json:"options"`
}

type CardDraft struct {
	Title    string         `json:"title"`
	Body     string         `json:"body,omitempty"`
	Question *QuestionDraft `json:"question,omitempty"`
}

type ItemDraft struct {
	Kind  string      `json:"kind"`
	Title string      `json:"title"`
	Cards []CardDraft `json:"cards"`
}

// BuildLesson templates reading cards from the extract, one sentence
// chunk per card.
func BuildLesson(ex Extract, cardCount int) ItemDraft {
	if cardCount < 1 {
		cardCount = 1
	}
	d := ItemDraft{Kind: KindLesson, Title: "Introduction to " + ex.Title}
	chunks := chunkSentences(ex.Sentences, cardCount)
	if len(chunks) == 0 {
		chunks = [][]string{{ex.Summary}}
	}
	for i, c := range chunks {
		d.Cards = append(d.Cards, CardDraft{
			Title: fmt.Sprintf("%s — part %d", ex.Title, i+1),
			Body:  strings.Join(c, ". ") + ".",
		})
	}
	return d
}

// BuildQuiz templates question cards: true/false checks on the extract's
// sentences, plus a single-choice question picking the accurate statement
// out of generic distractors.
func BuildQuiz(ex Extract, questionCount int) ItemDraft {
	if questionCount < 1 {
		questionCount = 1
	}
	d := ItemDraft{Kind: KindQuiz, Title: ex.Title + " — check your knowledge"}
	sentences := ex.Sentences
	if len(sentences) == 0 {
		sentences = []string{ex.Summary}
	}
	for i := 0; i < questionCount; i++ {
		s := sentences[i%len(sentences)]
		var q QuestionDraft
		if i%2 == 0 {
			q = QuestionDraft{
				Type:   "trueFalse",
				Prompt: "True or false: " + s + ".",
				Options: []OptionDraft{
					{ID: uuid.NewString(), Text: "True", Correct: true},
					{ID: uuid.NewString(), Text: "False", Correct: false},
				},
			}
		} else {
			q = QuestionDraft{
				Type:   "singleChoice",
				Prompt: fmt.Sprintf("Which statement about %s is accurate?", ex.Title),
				Options: []OptionDraft{
					{ID: uuid.NewString(), Text: s + ".", Correct: true},
					{ID: uuid.NewString(), Text: fmt.Sprintf("%s has no documented history.", ex.Title), Correct: false},
					{ID: uuid.NewString(), Text: fmt.Sprintf("None of the sources mention %s.", ex.Title), Correct: false},
				},
			}
		}
		d.Cards = append(d.Cards, CardDraft{
			Title:    fmt.Sprintf("Question %d", i+1),
			Question: &q,
		})
	}
	return d
}

func chunkSentences(sentences []string, n int) [][]string {
	if len(sentences) == 0 {
		return nil
	}
	if n > len(sentences) {
		n = len(sentences)
	}
	size := (len(sentences) + n - 1) / n
	var out [][]string
	for i := 0; i < len(sentences); i += size {
		end := i + size
		if end > len(sentences) {
			end = len(sentences)
		}
		out = append(out, sentences[i:end])
	}
	return out
}
