// Package permission decides who may read and reply to forum posts.
package permission

import "github.com/noah-isme/course-portal-api/internal/models"

// Viewer is the authenticated user a decision is made for. TeachingClassID is
// the student's enrolled class and is ignored for other roles.
type Viewer struct {
	UserID          uint
	Role            models.Role
	TeachingClassID *uint
}

// ViewerFromUser builds a Viewer from a user with its student profile loaded.
func ViewerFromUser(user models.User) Viewer {
	viewer := Viewer{UserID: user.ID, Role: user.Role}
	if user.Role == models.RoleStudent && user.StudentProfile != nil {
		viewer.TeachingClassID = user.StudentProfile.TeachingClassID
	}
	return viewer
}

// Authenticated reports whether the viewer represents a logged-in user.
func (v Viewer) Authenticated() bool {
	return v.UserID != 0 && v.Role.Valid()
}

// CanView reports whether the viewer may read the post. The post's
// TeachingClass must be loaded when it is linked.
func CanView(post models.ForumPost, viewer Viewer) bool {
	if !viewer.Authenticated() {
		return false
	}
	if post.AuthorID == viewer.UserID {
		return true
	}

	switch viewer.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return teacherCanView(post, viewer)
	case models.RoleStudent:
		return studentCanView(post, viewer)
	default:
		return false
	}
}

// CanReply reports whether the viewer may reply. Locked posts accept no
// replies from anyone.
func CanReply(post models.ForumPost, viewer Viewer) bool {
	if !viewer.Authenticated() || post.IsLocked {
		return false
	}
	return CanView(post, viewer)
}

func teacherCanView(post models.ForumPost, viewer Viewer) bool {
	switch post.Visibility {
	case models.VisibilityPublic:
		return true
	case models.VisibilityClassOnly, models.VisibilityTeacherOnly:
		class := linkedClass(post)
		return class != nil && class.OwnedBy(viewer.UserID)
	default:
		return false
	}
}

func studentCanView(post models.ForumPost, viewer Viewer) bool {
	switch post.Visibility {
	case models.VisibilityPublic:
		return true
	case models.VisibilityClassOnly:
		class := linkedClass(post)
		return class != nil && viewer.TeachingClassID != nil && *viewer.TeachingClassID == class.ID
	default:
		return false
	}
}

func linkedClass(post models.ForumPost) *models.TeachingClass {
	if post.TeachingClassID == nil || post.TeachingClass == nil {
		return nil
	}
	return post.TeachingClass
}
