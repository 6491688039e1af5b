package cloudinary

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSanitizeKey(t *testing.T) {
	require.Equal(t, "teacher-12", sanitizeKey("teacher 12"))
	require.Equal(t, "a-b", sanitizeKey("/a.b/"))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)

	svc, err := New(Config{CloudName: "demo", APIKey: "key", APISecret: "secret", Folder: "/portal/teachers/"}, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, "portal/teachers", svc.folder)
}
