package permission

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-portal-api/internal/models"
)

func classPost(visibility models.Visibility, classID uint, owner uint) models.ForumPost {
	return models.ForumPost{
		ID:              1,
		AuthorID:        100,
		Visibility:      visibility,
		TeachingClassID: &classID,
		TeachingClass:   &models.TeachingClass{ID: classID, CreatedBy: owner},
	}
}

func uintPtr(v uint) *uint {
	return &v
}

func TestPublicPostVisibleToEveryAuthenticatedUser(t *testing.T) {
	post := models.ForumPost{AuthorID: 100, Visibility: models.VisibilityPublic}

	for _, viewer := range []Viewer{
		{UserID: 1, Role: models.RoleAdmin},
		{UserID: 2, Role: models.RoleTeacher},
		{UserID: 3, Role: models.RoleStudent},
		{UserID: 4, Role: models.RoleStudent, TeachingClassID: uintPtr(9)},
	} {
		require.True(t, CanView(post, viewer), "viewer %d", viewer.UserID)
		require.True(t, CanReply(post, viewer), "viewer %d", viewer.UserID)
	}

	require.False(t, CanView(post, Viewer{}))
	require.False(t, CanReply(post, Viewer{}))
}

func TestClassOnlyPost(t *testing.T) {
	post := classPost(models.VisibilityClassOnly, 5, 20)

	require.True(t, CanView(post, Viewer{UserID: 20, Role: models.RoleTeacher}))
	require.False(t, CanView(post, Viewer{UserID: 21, Role: models.RoleTeacher}))
	require.True(t, CanView(post, Viewer{UserID: 30, Role: models.RoleStudent, TeachingClassID: uintPtr(5)}))
	require.False(t, CanView(post, Viewer{UserID: 31, Role: models.RoleStudent, TeachingClassID: uintPtr(6)}))
	require.False(t, CanView(post, Viewer{UserID: 32, Role: models.RoleStudent}))
	require.True(t, CanView(post, Viewer{UserID: 1, Role: models.RoleAdmin}))
	require.True(t, CanView(post, Viewer{UserID: 100, Role: models.RoleStudent}))
}

func TestTeacherOnlyPost(t *testing.T) {
	post := classPost(models.VisibilityTeacherOnly, 5, 20)

	require.True(t, CanView(post, Viewer{UserID: 20, Role: models.RoleTeacher}))
	require.False(t, CanView(post, Viewer{UserID: 21, Role: models.RoleTeacher}))
	require.False(t, CanView(post, Viewer{UserID: 30, Role: models.RoleStudent, TeachingClassID: uintPtr(5)}))
	require.True(t, CanView(post, Viewer{UserID: 100, Role: models.RoleStudent, TeachingClassID: uintPtr(5)}))
}

func TestNonPublicPostWithoutClassIsHidden(t *testing.T) {
	for _, visibility := range []models.Visibility{models.VisibilityClassOnly, models.VisibilityTeacherOnly} {
		post := models.ForumPost{AuthorID: 100, Visibility: visibility}

		require.False(t, CanView(post, Viewer{UserID: 20, Role: models.RoleTeacher}))
		require.False(t, CanView(post, Viewer{UserID: 30, Role: models.RoleStudent, TeachingClassID: uintPtr(5)}))
		require.False(t, CanReply(post, Viewer{UserID: 20, Role: models.RoleTeacher}))
		require.True(t, CanView(post, Viewer{UserID: 1, Role: models.RoleAdmin}))
		require.True(t, CanView(post, Viewer{UserID: 100, Role: models.RoleStudent}))
	}
}

func TestLockedPostBlocksReplies(t *testing.T) {
	post := classPost(models.VisibilityClassOnly, 5, 20)
	post.IsLocked = true

	author := Viewer{UserID: 100, Role: models.RoleStudent, TeachingClassID: uintPtr(5)}
	admin := Viewer{UserID: 1, Role: models.RoleAdmin}
	owner := Viewer{UserID: 20, Role: models.RoleTeacher}

	for _, viewer := range []Viewer{author, admin, owner} {
		require.True(t, CanView(post, viewer))
		require.False(t, CanReply(post, viewer))
	}
}

func TestViewerFromUser(t *testing.T) {
	student := models.User{
		ID:             3,
		Role:           models.RoleStudent,
		StudentProfile: &models.StudentProfile{TeachingClassID: uintPtr(8)},
	}
	viewer := ViewerFromUser(student)
	require.Equal(t, uint(3), viewer.UserID)
	require.NotNil(t, viewer.TeachingClassID)
	require.Equal(t, uint(8), *viewer.TeachingClassID)

	teacher := ViewerFromUser(models.User{ID: 4, Role: models.RoleTeacher})
	require.Nil(t, teacher.TeachingClassID)
}
