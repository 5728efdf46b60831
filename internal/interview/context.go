// Package interview resolves the metadata one interview session runs on and
// defines the result record handed to the completion view.
package interview

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	DefaultJobTitle = "Interview"
	DefaultDuration = "15 Min"
	DefaultUserName = "Candidate"
)

// Context is the interview metadata for one activation. It is populated once
// by the Resolver and not mutated afterwards.
type Context struct {
	ID        string
	JobTitle  string
	Duration  string
	Questions []string
	UserName  string
}

// Question decodes either a bare string or an object with "text" or
// "question".
type Question string

func (q *Question) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*q = Question(strings.TrimSpace(text))
		return nil
	}

	var obj struct {
		Text     string `json:"text"`
		Question string `json:"question"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode question: %w", err)
	}
	if strings.TrimSpace(obj.Text) != "" {
		*q = Question(strings.TrimSpace(obj.Text))
		return nil
	}
	*q = Question(strings.TrimSpace(obj.Question))
	return nil
}

// NavigationState is the payload the dashboard passes when it opens the
// interview screen.
type NavigationState struct {
	UserName      string         `json:"userName,omitempty"`
	InterviewInfo *InterviewInfo `json:"interviewInfo,omitempty"`
	InterviewData *InterviewData `json:"interviewData,omitempty"`
}

type InterviewInfo struct {
	UserName      string         `json:"userName,omitempty"`
	InterviewData *InterviewData `json:"interviewData,omitempty"`
}

type InterviewData struct {
	QuestionList []Question `json:"questionList"`
	JobTitle     string     `json:"jobTitle,omitempty"`
	Duration     string     `json:"duration,omitempty"`
}

// Data returns the interview payload, preferring the nested interviewInfo form.
func (n NavigationState) Data() *InterviewData {
	if n.InterviewInfo != nil && n.InterviewInfo.InterviewData != nil {
		return n.InterviewInfo.InterviewData
	}
	return n.InterviewData
}

// Candidate returns the candidate name carried by the payload, if any.
func (n NavigationState) Candidate() string {
	if n.InterviewInfo != nil && strings.TrimSpace(n.InterviewInfo.UserName) != "" {
		return strings.TrimSpace(n.InterviewInfo.UserName)
	}
	return strings.TrimSpace(n.UserName)
}

// Questions returns the non-empty questions of the payload.
func (d *InterviewData) Questions() []string {
	if d == nil {
		return nil
	}
	return cleanQuestions(d.QuestionList)
}

// ParseNavigation decodes a navigation payload.
func ParseNavigation(data []byte) (NavigationState, error) {
	var nav NavigationState
	if len(strings.TrimSpace(string(data))) == 0 {
		return nav, nil
	}
	if err := json.Unmarshal(data, &nav); err != nil {
		return NavigationState{}, fmt.Errorf("decode navigation state: %w", err)
	}
	return nav, nil
}

// ResultRecord is produced at most once per session and handed to the
// completion view. Feedback is omitted when none was generated.
type ResultRecord struct {
	ID       string          `json:"id"`
	JobTitle string          `json:"jobTitle"`
	UserName string          `json:"userName"`
	Duration string          `json:"duration"`
	Feedback json.RawMessage `json:"feedback,omitempty"`
}

// HasFeedback reports whether the record carries generated feedback.
func (r ResultRecord) HasFeedback() bool {
	trimmed := strings.TrimSpace(string(r.Feedback))
	return trimmed != "" && trimmed != "null"
}

func cleanQuestions(list []Question) []string {
	out := make([]string, 0, len(list))
	for _, q := range list {
		text := strings.TrimSpace(string(q))
		if text == "" {
			continue
		}
		out = append(out, text)
	}
	return out
}
