package utils_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uepipe/uepipe/pkg/utils"
)

func TestRemoveReadOnly(t *testing.T) {
	root := filepath.Join(t.TempDir(), "clone")
	nested := filepath.Join(root, ".git", "objects", "pack")
	require.NoError(t, os.MkdirAll(nested, 0755))

	packFile := filepath.Join(nested, "pack-1.pack")
	require.NoError(t, os.WriteFile(packFile, []byte("data"), 0444))
	readme := filepath.Join(root, "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("hi"), 0444))

	require.NoError(t, utils.RemoveReadOnly(root))
	assert.False(t, utils.Exists(root))
}

func TestRemoveReadOnly_ReadOnlyDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory write bits do not guard deletion on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	root := filepath.Join(t.TempDir(), "clone")
	locked := filepath.Join(root, "Binaries")
	require.NoError(t, os.MkdirAll(locked, 0755))
	file := filepath.Join(locked, "UnrealEditor-Xsolla.dll")
	require.NoError(t, os.WriteFile(file, []byte("bin"), 0644))
	require.NoError(t, os.Chmod(locked, 0555))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	require.Error(t, os.Remove(file), "a 0555 directory must refuse plain deletion")

	require.NoError(t, utils.RemoveReadOnly(root))
	assert.False(t, utils.Exists(root))
}

func TestRemoveReadOnly_Missing(t *testing.T) {
	assert.NoError(t, utils.RemoveReadOnly(filepath.Join(t.TempDir(), "nope")))
}

func TestResetDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Inspect")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.xml"), []byte("x"), 0644))

	require.NoError(t, utils.ResetDirectory(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteFileAtomic_KeepsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0600))

	require.NoError(t, utils.WriteFileAtomic(path, []byte("new")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestFindFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Source"), 0755))
	for _, name := range []string{"Demo.Target.cs", "DemoEditor.Target.cs", "Demo.Build.cs"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, "Source", name), nil, 0644))
	}

	files, err := utils.FindFiles(root, ".Target.cs")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, utils.FormatBytes(tt.in))
	}
}
