package progress

import "fmt"

// LessonTotals is the course-wide progress summary the lesson endpoints attach
// to their responses. It is passed through for display only.
type LessonTotals struct {
	ProgressPercent *float64 `json:"progress_percent,omitempty"`
	CompletedCount  *int     `json:"completed_count,omitempty"`
	TotalLessons    *int     `json:"total_lessons,omitempty"`
}

// QuizOutcome is the JSON answer of the quiz submission endpoint.
type QuizOutcome struct {
	IsCorrect       bool    `json:"is_correct"`
	CorrectAnswer   string  `json:"correct_answer"`
	Explanation     string  `json:"explanation"`
	AwardedPoints   float64 `json:"awarded_points,omitempty"`
	EarnedBonus     bool    `json:"earned_bonus,omitempty"`
	LessonCompleted bool    `json:"lesson_completed,omitempty"`
	LessonTotals
}

// QuizRecord is the last quiz answer kept for the lesson, restored on reload.
type QuizRecord struct {
	Answer        string `json:"answer,omitempty"`
	Correct       bool   `json:"correct,omitempty"`
	CorrectAnswer string `json:"correctAnswer,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
	Message       string `json:"message,omitempty"`
}

func quizMessage(correct bool, correctAnswer string) string {
	if correct {
		return "Correct! Keep the streak going."
	}
	return fmt.Sprintf("The correct answer is: %s.", correctAnswer)
}

// ApplyQuizOutcome stores the answer and sets the test stage to the outcome. A
// correct answer that also completed the lesson completes summary explicitly.
func (s *Session) ApplyQuizOutcome(answer string, out QuizOutcome) QuizRecord {
	correctAnswer := out.CorrectAnswer
	if correctAnswer == "" {
		correctAnswer = answer
	}
	rec := QuizRecord{
		Answer:        answer,
		Correct:       out.IsCorrect,
		CorrectAnswer: correctAnswer,
		Explanation:   out.Explanation,
		Message:       quizMessage(out.IsCorrect, correctAnswer),
	}
	saveJSON(s.st, QuizKey(s.lesson), rec)
	s.SetStage(StageTest, out.IsCorrect)
	if out.IsCorrect && out.LessonCompleted {
		s.SetStage(StageSummary, true)
	}
	return rec
}

// ResetQuiz forgets the stored answer and reopens the test stage.
func (s *Session) ResetQuiz() {
	saveJSON(s.st, QuizKey(s.lesson), QuizRecord{})
	s.SetStage(StageTest, false)
}

// Quiz returns the stored quiz record, if any.
func (s *Session) Quiz() (QuizRecord, bool) {
	var rec QuizRecord
	if !loadJSON(s.st, QuizKey(s.lesson), &rec) || rec.Answer == "" {
		return QuizRecord{}, false
	}
	return rec, true
}

// ReconcileQuiz aligns the test stage with the stored quiz record, as done on
// every page load.
func (s *Session) ReconcileQuiz() (QuizRecord, bool) {
	rec, ok := s.Quiz()
	if !ok {
		s.SetStage(StageTest, false)
		return QuizRecord{}, false
	}
	s.SetStage(StageTest, rec.Correct)
	return rec, true
}
