package patch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desktopmate-tools/dminstall/internal/manifest"
	"github.com/desktopmate-tools/dminstall/internal/report"
	"github.com/desktopmate-tools/dminstall/internal/testutil"
)

func source(t *testing.T) manifest.Goldberg {
	t.Helper()
	m, err := manifest.Default()
	require.NoError(t, err)
	return m.Goldberg
}

func TestApply(t *testing.T) {
	src := source(t)

	tests := []struct {
		name       string
		existing   string
		backup     string
		wantBackup bool
		wantOrig   string
	}{
		{name: "fresh directory"},
		{name: "backs up original", existing: "steam", wantBackup: true, wantOrig: "steam"},
		{name: "keeps first backup", existing: "old-patch", backup: "steam", wantOrig: "steam"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dl := &testutil.FakeDownloader{Payloads: map[string][]byte{
				src.URL: testutil.ZipBytes(t, map[string]string{
					"experimental/steam_api64.dll": "goldberg",
					"release/steam_api64.dll":      "wrong",
				}),
			}}
			rec := &report.Recorder{}
			g := New(src, dl, WithWorkDir(t.TempDir()), WithReporter(rec), WithLogger(testutil.NewTestLogger(t)))

			dir := t.TempDir()
			target := g.TargetPath(dir)
			if tt.existing != "" {
				require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
				testutil.WriteFile(t, target, tt.existing)
			}
			if tt.backup != "" {
				testutil.WriteFile(t, target+BackupSuffix, tt.backup)
			}

			res, err := g.Apply(context.Background(), dir)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBackup, res.BackedUp)
			assert.Equal(t, target, res.Target)

			got, err := os.ReadFile(target)
			require.NoError(t, err)
			assert.Equal(t, "goldberg", string(got))

			if tt.wantOrig != "" {
				orig, err := os.ReadFile(target + BackupSuffix)
				require.NoError(t, err)
				assert.Equal(t, tt.wantOrig, string(orig))
			}
			assert.True(t, g.Applied(dir))
			assert.True(t, rec.Has("success", "Goldberg patch applied"))
		})
	}
}

func TestApply_RepatchKeepsNoBackupOfEmulator(t *testing.T) {
	src := source(t)
	dl := &testutil.FakeDownloader{Payloads: map[string][]byte{
		src.URL: testutil.ZipBytes(t, map[string]string{"experimental/steam_api64.dll": "goldberg"}),
	}}
	g := New(src, dl, WithWorkDir(t.TempDir()))
	dir := t.TempDir()
	assert.False(t, g.Applied(dir))

	_, err := g.Apply(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, g.Applied(dir), "a patch without an original DLL still counts")
	assert.NoFileExists(t, g.TargetPath(dir)+BackupSuffix)

	res, err := g.Apply(context.Background(), dir)
	require.NoError(t, err)
	assert.False(t, res.BackedUp)
	assert.NoFileExists(t, g.TargetPath(dir)+BackupSuffix, "the emulator DLL is never kept as the original")
}

func TestApplied(t *testing.T) {
	g := New(source(t), nil)
	tests := []struct {
		name   string
		suffix string
		want   bool
	}{
		{name: "nothing", want: false},
		{name: "marker", suffix: MarkerSuffix, want: true},
		{name: "backup only", suffix: BackupSuffix, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.suffix != "" {
				target := g.TargetPath(dir)
				require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
				testutil.WriteFile(t, target+tt.suffix, "x")
			}
			assert.Equal(t, tt.want, g.Applied(dir))
		})
	}
}

func TestApply_TargetLayout(t *testing.T) {
	src := source(t)
	g := New(src, nil)
	got := g.TargetPath("game")
	assert.Equal(t, filepath.Join("game", "DesktopMate_Data", "Plugins", "x86_64", "steam_api64.dll"), got)
}

func TestApply_MissingDLL(t *testing.T) {
	src := source(t)
	dl := &testutil.FakeDownloader{Payloads: map[string][]byte{
		src.URL: testutil.ZipBytes(t, map[string]string{"release/steam_api64.dll": "x"}),
	}}
	work := t.TempDir()
	g := New(src, dl, WithWorkDir(work))

	dir := t.TempDir()
	_, err := g.Apply(context.Background(), dir)
	require.ErrorIs(t, err, ErrPatchFileMissing)
	assert.NoFileExists(t, g.TargetPath(dir))
	assert.NoDirExists(t, filepath.Join(work, extractDirName))
}

func TestApply_DownloadError(t *testing.T) {
	g := New(source(t), &testutil.FakeDownloader{Err: errors.New("gitlab down")}, WithWorkDir(t.TempDir()))

	_, err := g.Apply(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gitlab down")
}
