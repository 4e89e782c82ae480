package worktree

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRepo initializes a git repository with one commit in a temp
// directory. Worktree commands need an existing commit to branch from,
// and the local user config keeps `git commit` working in bare CI
// environments.
func setupRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	gitRun(t, dir, "init")
	gitRun(t, dir, "config", "user.email", "test@example.com")
	gitRun(t, dir, "config", "user.name", "Test User")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0o644))
	gitRun(t, dir, "add", ".")
	gitRun(t, dir, "commit", "-m", "initial commit")

	return dir
}

func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

// TestAddNewBranch verifies Add creates the worktree directory and
// checks out a freshly created branch.
func TestAddNewBranch(t *testing.T) {
	repo := setupRepo(t)
	m := NewManager()

	path := filepath.Join(t.TempDir(), "feature-auth")
	require.NoError(t, m.Add(repo, "feature-auth", path, ""))

	branch, err := m.CurrentBranch(path)
	require.NoError(t, err)
	assert.Equal(t, "feature-auth", branch)
}

// TestAddExistingBranch verifies Add checks out a branch that already
// exists instead of failing on -b.
func TestAddExistingBranch(t *testing.T) {
	repo := setupRepo(t)
	m := NewManager()
	gitRun(t, repo, "branch", "existing")

	path := filepath.Join(t.TempDir(), "existing-ws")
	require.NoError(t, m.Add(repo, "existing", path, ""))

	branch, err := m.CurrentBranch(path)
	require.NoError(t, err)
	assert.Equal(t, "existing", branch)
}

// TestAddWithBase verifies the new branch starts from the named base
// rather than HEAD.
func TestAddWithBase(t *testing.T) {
	repo := setupRepo(t)
	m := NewManager()

	base, err := m.CurrentBranch(repo)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "from-base")
	require.NoError(t, m.Add(repo, "from-base", path, base))

	branch, err := m.CurrentBranch(path)
	require.NoError(t, err)
	assert.Equal(t, "from-base", branch)
}

// TestRemove verifies removal of a clean worktree takes the directory
// and the git bookkeeping with it.
func TestRemove(t *testing.T) {
	repo := setupRepo(t)
	m := NewManager()

	path := filepath.Join(t.TempDir(), "doomed")
	require.NoError(t, m.Add(repo, "doomed", path, ""))
	require.NoError(t, m.Remove(repo, path, false))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "worktree directory should be gone")

	infos, err := m.List(repo)
	require.NoError(t, err)
	resolved, _ := filepath.EvalSymlinks(path)
	for _, info := range infos {
		assert.NotEqual(t, resolved, info.Path)
	}
}

// TestRemoveForce verifies force removal succeeds with untracked files
// present, the normal state of an abandoned agent session.
func TestRemoveForce(t *testing.T) {
	repo := setupRepo(t)
	m := NewManager()

	path := filepath.Join(t.TempDir(), "dirty")
	require.NoError(t, m.Add(repo, "dirty", path, ""))
	require.NoError(t, os.WriteFile(filepath.Join(path, "scratch.txt"), []byte("wip"), 0o644))

	assert.Error(t, m.Remove(repo, path, false), "non-forced removal should refuse a dirty worktree")
	require.NoError(t, m.Remove(repo, path, true))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

// TestList verifies the main checkout and every added worktree appear
// with branch and HEAD populated.
func TestList(t *testing.T) {
	repo := setupRepo(t)
	m := NewManager()

	wt1 := filepath.Join(t.TempDir(), "ws-one")
	wt2 := filepath.Join(t.TempDir(), "ws-two")
	require.NoError(t, m.Add(repo, "ws-one", wt1, ""))
	require.NoError(t, m.Add(repo, "ws-two", wt2, ""))

	infos, err := m.List(repo)
	require.NoError(t, err)
	require.Len(t, infos, 3)

	paths := make([]string, len(infos))
	for i, info := range infos {
		paths[i] = info.Path
		assert.NotEmpty(t, info.HEAD)
		assert.NotEmpty(t, info.Branch)
	}

	// macOS temp dirs sit behind a /var -> /private/var symlink which
	// git resolves, so compare resolved paths.
	resolved1, _ := filepath.EvalSymlinks(wt1)
	resolved2, _ := filepath.EvalSymlinks(wt2)
	assert.Contains(t, paths, resolved1)
	assert.Contains(t, paths, resolved2)
}

// TestPrune verifies stale bookkeeping for a hand-deleted worktree is
// dropped so the path can be reused.
func TestPrune(t *testing.T) {
	repo := setupRepo(t)
	m := NewManager()

	path := filepath.Join(t.TempDir(), "vanished")
	require.NoError(t, m.Add(repo, "vanished", path, ""))
	require.NoError(t, os.RemoveAll(path))

	require.NoError(t, m.Prune(repo))

	infos, err := m.List(repo)
	require.NoError(t, err)
	assert.Len(t, infos, 1, "only the main checkout should remain")
}

// TestRepoRoot verifies resolution from the root and from a nested
// subdirectory.
func TestRepoRoot(t *testing.T) {
	repo := setupRepo(t)
	m := NewManager()

	sub := filepath.Join(repo, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	want, _ := filepath.EvalSymlinks(repo)
	for _, start := range []string{repo, sub} {
		root, err := m.RepoRoot(start)
		require.NoError(t, err)
		got, _ := filepath.EvalSymlinks(root)
		assert.Equal(t, want, got)
	}
}

// TestRepoRootOutsideRepo verifies a non-repository path is a git error.
func TestRepoRootOutsideRepo(t *testing.T) {
	m := NewManager()
	_, err := m.RepoRoot(t.TempDir())
	assert.Error(t, err)
}

// TestBranchExists verifies detection of present and absent branches.
func TestBranchExists(t *testing.T) {
	repo := setupRepo(t)
	m := NewManager()

	current, err := m.CurrentBranch(repo)
	require.NoError(t, err)

	assert.True(t, m.BranchExists(repo, current))
	assert.False(t, m.BranchExists(repo, "no-such-branch"))
}

// TestExists covers the orphan-detection helper.
func TestExists(t *testing.T) {
	m := NewManager()

	dir := t.TempDir()
	assert.True(t, m.Exists(dir))
	assert.False(t, m.Exists(filepath.Join(dir, "absent")))

	file := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.False(t, m.Exists(file), "a plain file is not a worktree directory")
}

// TestDefaultPath verifies the sibling-directory convention and the
// configured parent override.
func TestDefaultPath(t *testing.T) {
	assert.Equal(t, "/home/dev/api-feature-auth",
		DefaultPath("/home/dev/api", "feature-auth", ""))
	assert.Equal(t, "/ws/api-feature-auth",
		DefaultPath("/home/dev/api", "feature-auth", "/ws"))
}

// TestParsePorcelain exercises the parser against fixed porcelain
// output, including a detached entry.
func TestParsePorcelain(t *testing.T) {
	out := `worktree /path/main
HEAD abc123
branch refs/heads/main

worktree /path/feature
HEAD def456
branch refs/heads/feature

worktree /path/detached
HEAD 012345
detached
`
	infos := parsePorcelain(out)
	require.Len(t, infos, 3)

	assert.Equal(t, Info{Path: "/path/main", HEAD: "abc123", Branch: "refs/heads/main"}, infos[0])
	assert.Equal(t, Info{Path: "/path/feature", HEAD: "def456", Branch: "refs/heads/feature"}, infos[1])
	assert.Equal(t, Info{Path: "/path/detached", HEAD: "012345"}, infos[2])
}

// TestParsePorcelainEmpty verifies empty output parses to nothing.
func TestParsePorcelainEmpty(t *testing.T) {
	assert.Empty(t, parsePorcelain(""))
}
