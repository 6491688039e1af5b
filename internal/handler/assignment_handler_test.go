package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/models"
)

func assignmentPayload(classID uint, action string, questions ...dto.QuestionRequest) dto.AssignmentCreateRequest {
	return dto.AssignmentCreateRequest{
		Title:           "Cell biology quiz",
		Description:     "Chapter 3 review",
		TeachingClassID: classID,
		PublishTime:     time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
		DueTime:         time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		TotalScore:      100,
		Questions:       questions,
		Action:          action,
	}
}

func essayQuestion() dto.QuestionRequest {
	return dto.QuestionRequest{
		Content: "Describe mitosis.",
		Type:    string(models.QuestionEssay),
		Score:   100,
	}
}

func TestAssignmentLifecycleOverHTTP(t *testing.T) {
	p := newPortal(t)
	teacher := p.user(t, "tutor", models.RoleTeacher)
	class := p.class(t, "Biology 1", teacher.ID)
	student := p.student(t, "dana", class.ID)
	teacherToken, studentToken := tokenFor(t, teacher), tokenFor(t, student)

	resp, env := p.do(t, http.MethodPost, "/api/v2/assignments", teacherToken, assignmentPayload(class.ID, "publish", essayQuestion()))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created dto.AssignmentResponse
	decodeData(t, env, &created)
	require.Equal(t, models.AssignmentPublished, created.Status)
	require.Len(t, created.Questions, 1)
	questionID := created.Questions[0].ID
	base := fmt.Sprintf("/api/v2/assignments/%d", created.ID)

	resp, env = p.do(t, http.MethodGet, base+"/take", studentToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var take dto.TakeAssignmentResponse
	decodeData(t, env, &take)
	require.Len(t, take.Assignment.Questions, 1)
	require.Nil(t, take.Assignment.Questions[0].CorrectAnswer)

	answers := dto.SaveAnswersRequest{Answers: map[string]string{strconv.FormatUint(uint64(questionID), 10): "Prophase, metaphase, anaphase, telophase."}}
	resp, _ = p.do(t, http.MethodPost, base+"/draft", studentToken, answers)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, env = p.do(t, http.MethodPost, base+"/submit", studentToken, answers)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var submission dto.SubmissionResponse
	decodeData(t, env, &submission)
	require.True(t, submission.IsSubmitted)
	require.False(t, submission.IsLate)

	resp, _ = p.do(t, http.MethodPost, base+"/submit", studentToken, answers)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	grading := fmt.Sprintf("%s/submissions/%d", base, submission.ID)
	resp, _ = p.do(t, http.MethodGet, grading, studentToken, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, env = p.do(t, http.MethodGet, grading, teacherToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var detail dto.GradingDetailResponse
	decodeData(t, env, &detail)
	require.Len(t, detail.Questions, 1)

	grade := dto.GradeSubmissionRequest{
		Scores:          map[string]dto.QuestionGrade{strconv.FormatUint(uint64(questionID), 10): {Score: 85, Comment: "Mostly right"}},
		TeacherComments: "Good work",
	}
	resp, _ = p.do(t, http.MethodPost, grading+"/grade", teacherToken, grade)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, env = p.do(t, http.MethodGet, base+"/result", studentToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var result dto.AssignmentResultResponse
	decodeData(t, env, &result)
	require.NotNil(t, result.Student)
	require.NotNil(t, result.Student.Submission)
	require.NotNil(t, result.Student.Submission.Percentage)
	require.InDelta(t, 85.0, *result.Student.Submission.Percentage, 0.001)
	require.Equal(t, "good", result.Student.Submission.Band)

	resp, env = p.do(t, http.MethodGet, "/api/v2/notifications", studentToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var inbox []dto.NotificationResponse
	decodeData(t, env, &inbox)
	require.Len(t, inbox, 2)
}

func TestAssignmentPublishWithoutQuestionsKeepsDraft(t *testing.T) {
	p := newPortal(t)
	teacher := p.user(t, "tutor", models.RoleTeacher)
	class := p.class(t, "Biology 2", teacher.ID)

	resp, env := p.do(t, http.MethodPost, "/api/v2/assignments", tokenFor(t, teacher), assignmentPayload(class.ID, "publish"))
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	require.False(t, env.Success)

	var details struct {
		Assignment dto.AssignmentResponse `json:"assignment"`
	}
	require.NoError(t, json.Unmarshal(env.Details, &details))
	require.NotZero(t, details.Assignment.ID)
	require.Equal(t, models.AssignmentDraft, details.Assignment.Status)
}

func TestAssignmentRoutesRejectBadInput(t *testing.T) {
	p := newPortal(t)
	teacher := p.user(t, "tutor", models.RoleTeacher)
	token := tokenFor(t, teacher)

	resp, _ := p.do(t, http.MethodGet, "/api/v2/assignments/abc", token, nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = p.do(t, http.MethodGet, "/api/v2/assignments/999", token, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = p.do(t, http.MethodPost, "/api/v2/assignments", token, dto.AssignmentCreateRequest{Title: "Missing fields"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAssignmentQuestionRoutes(t *testing.T) {
	p := newPortal(t)
	teacher := p.user(t, "tutor", models.RoleTeacher)
	class := p.class(t, "Biology 3", teacher.ID)
	token := tokenFor(t, teacher)

	resp, env := p.do(t, http.MethodPost, "/api/v2/assignments", token, assignmentPayload(class.ID, "draft"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var draft dto.AssignmentResponse
	decodeData(t, env, &draft)
	base := fmt.Sprintf("/api/v2/assignments/%d", draft.ID)

	resp, env = p.do(t, http.MethodPost, base+"/questions", token, essayQuestion())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var question dto.QuestionResponse
	decodeData(t, env, &question)

	update := essayQuestion()
	update.Content = "Describe meiosis."
	resp, env = p.do(t, http.MethodPut, fmt.Sprintf("%s/questions/%d", base, question.ID), token, update)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeData(t, env, &question)
	require.Equal(t, "Describe meiosis.", question.Content)

	resp, _ = p.do(t, http.MethodDelete, fmt.Sprintf("%s/questions/%d", base, question.ID), token, nil)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = p.do(t, http.MethodPost, base+"/archive", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, env = p.do(t, http.MethodGet, "/api/v2/assignments", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var index dto.AssignmentIndexResponse
	decodeData(t, env, &index)
	require.NotNil(t, index.Teacher)
	require.Empty(t, index.Teacher.Assignments)
}
