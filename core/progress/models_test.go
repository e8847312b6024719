package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func noteIDs(p Progress) []string {
	ids := make([]string, 0, len(p.NotesCompleted))
	for _, n := range p.NotesCompleted {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestProgress_CompleteNote(t *testing.T) {
	p := New("p1", Key{UserID: "u1", SubjectID: "s1"}, time.Now())

	assert.True(t, p.CompleteNote("n1"))
	assert.True(t, p.CompleteNote("n2"))
	assert.False(t, p.CompleteNote("n1"))
	assert.Equal(t, []string{"n1", "n2"}, noteIDs(p))
	assert.True(t, p.HasNote("n2"))
	assert.False(t, p.HasNote("n3"))
}

func TestProgress_UncompleteNote(t *testing.T) {
	tests := []struct {
		name    string
		notes   []string
		noteID  string
		want    bool
		wantIDs []string
	}{
		{name: "first", notes: []string{"n1", "n2", "n3"}, noteID: "n1", want: true, wantIDs: []string{"n2", "n3"}},
		{name: "middle", notes: []string{"n1", "n2", "n3"}, noteID: "n2", want: true, wantIDs: []string{"n1", "n3"}},
		{name: "absent", notes: []string{"n1"}, noteID: "n2", want: false, wantIDs: []string{"n1"}},
		{name: "empty", notes: nil, noteID: "n1", want: false, wantIDs: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New("p1", Key{UserID: "u1", SubjectID: "s1"}, time.Now())
			for _, id := range tt.notes {
				p.CompleteNote(id)
			}
			if got := p.UncompleteNote(tt.noteID); got != tt.want {
				t.Errorf("UncompleteNote() = %v, want %v", got, tt.want)
			}
			assert.Equal(t, tt.wantIDs, noteIDs(p))
		})
	}
}

func TestProgress_RecordQuizResult(t *testing.T) {
	t1 := time.Date(2021, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	p := New("p1", Key{UserID: "u1", SubjectID: "s1"}, t1)

	p.RecordQuizResult("q1", 75, t1)
	p.RecordQuizResult("q2", 50, t1)
	p.RecordQuizResult("q1", 100, t2)

	assert.Equal(t, []QuizResult{
		{Quiz: QuizRef{ID: "q1"}, Score: 100, TakenAt: t2},
		{Quiz: QuizRef{ID: "q2"}, Score: 50, TakenAt: t1},
	}, p.QuizResults)
}

func TestProgress_RemoveQuizResults(t *testing.T) {
	now := time.Now()
	p := New("p1", Key{UserID: "u1", SubjectID: "s1"}, now)
	p.RecordQuizResult("q1", 75, now)
	p.RecordQuizResult("q2", 50, now)

	assert.False(t, p.RemoveQuizResults("q3"))
	assert.Len(t, p.QuizResults, 2)
	assert.True(t, p.RemoveQuizResults("q1"))
	if assert.Len(t, p.QuizResults, 1) {
		assert.Equal(t, "q2", p.QuizResults[0].Quiz.ID)
	}
}

func TestNew(t *testing.T) {
	now := time.Now()
	p := New("p1", Key{UserID: "u1", SubjectID: "s1"}, now)
	assert.Equal(t, Key{UserID: "u1", SubjectID: "s1"}, p.Key())
	assert.NotNil(t, p.NotesCompleted)
	assert.NotNil(t, p.QuizResults)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, now, p.LastAccessedAt)

	later := now.Add(time.Minute)
	p.Touch(later)
	assert.Equal(t, later, p.LastAccessedAt)
	assert.Equal(t, now, p.CreatedAt)
}
