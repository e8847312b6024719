package progress

import (
	"time"

	"github.com/trezcool/soma/core/subject"
)

type NoteRef struct {
	ID    string `json:"id"`
	Title string `json:"title"` // empty when the note no longer exists
}

type QuizRef struct {
	ID    string `json:"id"`
	Title string `json:"title"` // empty when the quiz no longer exists
}

type QuizResult struct {
	Quiz    QuizRef   `json:"quiz"`
	Score   float64   `json:"score"`
	TakenAt time.Time `json:"takenAt"` // UTC
}

// Progress is a user's completion state in a subject. There is at most one per (user, subject).
type Progress struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user"`
	Subject        subject.Ref  `json:"subject"`
	NotesCompleted []NoteRef    `json:"notesCompleted"`
	QuizResults    []QuizResult `json:"quizResults"`
	CreatedAt      time.Time    `json:"createdAt"`      // UTC
	LastAccessedAt time.Time    `json:"lastAccessedAt"` // UTC
}

// Key identifies the Progress of a user in a subject.
type Key struct {
	UserID    string
	SubjectID string
}

func (p Progress) Key() Key {
	return Key{UserID: p.UserID, SubjectID: p.Subject.ID}
}

// New returns an empty Progress for key.
func New(id string, key Key, now time.Time) Progress {
	return Progress{
		ID:             id,
		UserID:         key.UserID,
		Subject:        subject.Ref{ID: key.SubjectID},
		NotesCompleted: []NoteRef{},
		QuizResults:    []QuizResult{},
		CreatedAt:      now,
		LastAccessedAt: now,
	}
}

// HasNote reports whether the note is completed.
func (p Progress) HasNote(noteID string) bool {
	for _, n := range p.NotesCompleted {
		if n.ID == noteID {
			return true
		}
	}
	return false
}

// CompleteNote adds the note to the completed notes, unless it is already there.
func (p *Progress) CompleteNote(noteID string) bool {
	if p.HasNote(noteID) {
		return false
	}
	p.NotesCompleted = append(p.NotesCompleted, NoteRef{ID: noteID})
	return true
}

// UncompleteNote removes the note from the completed notes. It reports whether the note was there.
func (p *Progress) UncompleteNote(noteID string) bool {
	for i, n := range p.NotesCompleted {
		if n.ID == noteID {
			p.NotesCompleted = append(p.NotesCompleted[:i], p.NotesCompleted[i+1:]...)
			return true
		}
	}
	return false
}

// RecordQuizResult overwrites the result of the quiz in place, or appends it.
func (p *Progress) RecordQuizResult(quizID string, score float64, at time.Time) {
	for i := range p.QuizResults {
		if p.QuizResults[i].Quiz.ID == quizID {
			p.QuizResults[i].Score = score
			p.QuizResults[i].TakenAt = at
			return
		}
	}
	p.QuizResults = append(p.QuizResults, QuizResult{Quiz: QuizRef{ID: quizID}, Score: score, TakenAt: at})
}

// RemoveQuizResults drops every result of the quiz. It reports whether any was dropped.
func (p *Progress) RemoveQuizResults(quizID string) bool {
	kept := p.QuizResults[:0]
	for _, r := range p.QuizResults {
		if r.Quiz.ID != quizID {
			kept = append(kept, r)
		}
	}
	removed := len(kept) != len(p.QuizResults)
	p.QuizResults = kept
	return removed
}

// Touch marks the progress as accessed at t.
func (p *Progress) Touch(t time.Time) {
	p.LastAccessedAt = t
}
