package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tierdrive/internal/domain"
)

func TestCreateFolderBuildsPathAndDepth(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.subscribe(t, alice, env.free)

	docs, err := env.folders.CreateFolder(ctx, alice, nil, "My Docs")
	require.NoError(t, err)
	assert.Equal(t, "/My-Docs", docs.Path)
	assert.Equal(t, 1, docs.Depth)
	assert.Nil(t, docs.ParentID)

	year, err := env.folders.CreateFolder(ctx, alice, &docs.ID, "2024")
	require.NoError(t, err)
	assert.Equal(t, "/My-Docs/2024", year.Path)
	assert.Equal(t, 2, year.Depth)
	require.NotNil(t, year.ParentID)
	assert.Equal(t, docs.ID, *year.ParentID)

	assert.Equal(t, 2, env.db.quota(alice).FolderCount)
}

func TestCreateFolderSanitizesName(t *testing.T) {
	env := newTestEnv(t)
	env.subscribe(t, alice, env.free)

	folder, err := env.folders.CreateFolder(context.Background(), alice, nil, "  Tax \t  Returns  ")
	require.NoError(t, err)
	assert.Equal(t, "Tax \t  Returns", folder.Name)
	assert.Equal(t, "/Tax-Returns", folder.Path)
}

func TestCreateFolderFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("requires subscription", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.folders.CreateFolder(ctx, alice, nil, "Docs")
		assert.ErrorIs(t, err, domain.ErrSubscriptionRequired)
	})

	t.Run("invalid names", func(t *testing.T) {
		env := newTestEnv(t)
		env.subscribe(t, alice, env.free)
		for _, name := range []string{"", "   ", "a/b", strings.Repeat("x", 129)} {
			_, err := env.folders.CreateFolder(ctx, alice, nil, name)
			assert.ErrorIs(t, err, domain.ErrInvalidInput, "name %q", name)
		}
	})

	t.Run("unknown parent", func(t *testing.T) {
		env := newTestEnv(t)
		env.subscribe(t, alice, env.free)
		missing := uuid.New()
		_, err := env.folders.CreateFolder(ctx, alice, &missing, "Docs")
		assert.ErrorIs(t, err, domain.ErrParentNotFound)
		assert.Zero(t, env.db.quota(alice).FolderCount)
	})

	t.Run("parent owned by someone else", func(t *testing.T) {
		env := newTestEnv(t)
		env.subscribe(t, alice, env.free)
		env.subscribe(t, bob, env.free)
		parent, err := env.folders.CreateFolder(ctx, bob, nil, "Bob")
		require.NoError(t, err)

		_, err = env.folders.CreateFolder(ctx, alice, &parent.ID, "Docs")
		assert.ErrorIs(t, err, domain.ErrParentNotFound)
	})

	t.Run("deleted parent", func(t *testing.T) {
		env := newTestEnv(t)
		env.subscribe(t, alice, env.free)
		parent, err := env.folders.CreateFolder(ctx, alice, nil, "Old")
		require.NoError(t, err)
		require.NoError(t, env.folders.DeleteFolder(ctx, alice, parent.ID))

		_, err = env.folders.CreateFolder(ctx, alice, &parent.ID, "Docs")
		assert.ErrorIs(t, err, domain.ErrParentNotFound)
	})

	t.Run("nesting limit", func(t *testing.T) {
		env := newTestEnv(t)
		env.subscribe(t, alice, env.free)
		level1, err := env.folders.CreateFolder(ctx, alice, nil, "one")
		require.NoError(t, err)
		level2, err := env.folders.CreateFolder(ctx, alice, &level1.ID, "two")
		require.NoError(t, err)

		_, err = env.folders.CreateFolder(ctx, alice, &level2.ID, "three")
		assert.ErrorIs(t, err, domain.ErrNestingLimitExceeded)
		assert.Equal(t, 2, env.db.quota(alice).FolderCount)
	})

	t.Run("folder limit", func(t *testing.T) {
		env := newTestEnv(t)
		small := env.addPackage(t, "Small", func(p *domain.SubscriptionPackage) { p.MaxFolders = 2 })
		env.subscribe(t, alice, small)
		for _, name := range []string{"a", "b"} {
			_, err := env.folders.CreateFolder(ctx, alice, nil, name)
			require.NoError(t, err)
		}

		_, err := env.folders.CreateFolder(ctx, alice, nil, "c")
		assert.ErrorIs(t, err, domain.ErrFolderLimitReached)

		folders, err := env.folders.ListFolders(ctx, alice, nil)
		require.NoError(t, err)
		assert.Len(t, folders, 2)
	})
}

func TestListFoldersByParent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.subscribe(t, alice, env.free)

	first, err := env.folders.CreateFolder(ctx, alice, nil, "first")
	require.NoError(t, err)
	_, err = env.folders.CreateFolder(ctx, alice, nil, "second")
	require.NoError(t, err)
	_, err = env.folders.CreateFolder(ctx, alice, &first.ID, "child")
	require.NoError(t, err)

	roots, err := env.folders.ListFolders(ctx, alice, nil)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, "first", roots[0].Name)
	assert.Equal(t, "second", roots[1].Name)

	children, err := env.folders.ListFolders(ctx, alice, &first.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "/first/child", children[0].Path)

	others, err := env.folders.ListFolders(ctx, bob, nil)
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestRenameFolderRewritesDescendantPaths(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.subscribe(t, alice, env.free)

	docs, err := env.folders.CreateFolder(ctx, alice, nil, "Docs")
	require.NoError(t, err)
	child, err := env.folders.CreateFolder(ctx, alice, &docs.ID, "2024")
	require.NoError(t, err)
	sibling, err := env.folders.CreateFolder(ctx, alice, nil, "Docs Archive")
	require.NoError(t, err)

	renamed, err := env.folders.RenameFolder(ctx, alice, docs.ID, "Work Docs")
	require.NoError(t, err)
	assert.Equal(t, "/Work-Docs", renamed.Path)

	children, err := env.folders.ListFolders(ctx, alice, &docs.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, child.ID, children[0].ID)
	assert.Equal(t, "/Work-Docs/2024", children[0].Path)

	roots, err := env.folders.ListFolders(ctx, alice, nil)
	require.NoError(t, err)
	for _, root := range roots {
		if root.ID == sibling.ID {
			assert.Equal(t, "/Docs-Archive", root.Path)
		}
	}
}

func TestRenameFolderLeavesSamePathFolderAlone(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.subscribe(t, alice, env.free)

	// оба имени дают путь /My-Docs
	first, err := env.folders.CreateFolder(ctx, alice, nil, "My Docs")
	require.NoError(t, err)
	x, err := env.folders.CreateFolder(ctx, alice, &first.ID, "x")
	require.NoError(t, err)
	second, err := env.folders.CreateFolder(ctx, alice, nil, "My  Docs")
	require.NoError(t, err)
	y, err := env.folders.CreateFolder(ctx, alice, &second.ID, "y")
	require.NoError(t, err)
	require.Equal(t, first.Path, second.Path)

	_, err = env.folders.RenameFolder(ctx, alice, first.ID, "Work")
	require.NoError(t, err)

	assert.Equal(t, "/Work/x", env.db.folder(x.ID).Path)
	assert.Equal(t, "/My-Docs", env.db.folder(second.ID).Path)
	assert.Equal(t, "/My-Docs/y", env.db.folder(y.ID).Path)
}

func TestRenameFolderNotFound(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.subscribe(t, alice, env.free)

	folder, err := env.folders.CreateFolder(ctx, alice, nil, "Docs")
	require.NoError(t, err)

	_, err = env.folders.RenameFolder(ctx, bob, folder.ID, "Mine")
	assert.ErrorIs(t, err, domain.ErrFolderNotFound)

	require.NoError(t, env.folders.DeleteFolder(ctx, alice, folder.ID))
	_, err = env.folders.RenameFolder(ctx, alice, folder.ID, "Back")
	assert.ErrorIs(t, err, domain.ErrFolderNotFound)
}

func TestDeleteFolderCascades(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.subscribe(t, alice, env.free)
	env.expectPut("blob")

	docs, err := env.folders.CreateFolder(ctx, alice, nil, "Docs")
	require.NoError(t, err)
	inner, err := env.folders.CreateFolder(ctx, alice, &docs.ID, "Inner")
	require.NoError(t, err)
	keep, err := env.folders.CreateFolder(ctx, alice, nil, "Keep")
	require.NoError(t, err)

	_, err = env.files.UploadFile(ctx, pdf(alice, &docs.ID, 100))
	require.NoError(t, err)
	_, err = env.files.UploadFile(ctx, pdf(alice, &inner.ID, 200))
	require.NoError(t, err)
	kept, err := env.files.UploadFile(ctx, pdf(alice, &keep.ID, 400))
	require.NoError(t, err)

	require.NoError(t, env.folders.DeleteFolder(ctx, alice, docs.ID))

	quota := env.db.quota(alice)
	assert.Equal(t, 1, quota.FolderCount)
	assert.Equal(t, 1, quota.FileCount)
	assert.Equal(t, int64(400), quota.UsedStorageBytes)
	assert.Zero(t, env.db.folderStats(docs.ID).FileCount)
	assert.Zero(t, env.db.folderStats(inner.ID).FileCount)
	assert.Equal(t, 1, env.db.folderStats(keep.ID).FileCount)

	roots, err := env.folders.ListFolders(ctx, alice, nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, keep.ID, roots[0].ID)

	files, err := env.files.ListFiles(ctx, alice, &keep.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, kept.ID, files[0].ID)

	assert.ErrorIs(t, env.folders.DeleteFolder(ctx, alice, docs.ID), domain.ErrFolderNotFound)
	assert.ErrorIs(t, env.folders.DeleteFolder(ctx, alice, inner.ID), domain.ErrFolderNotFound)
}

func TestDeleteFolderOfAnotherUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.subscribe(t, alice, env.free)

	folder, err := env.folders.CreateFolder(ctx, alice, nil, "Docs")
	require.NoError(t, err)

	assert.ErrorIs(t, env.folders.DeleteFolder(ctx, bob, folder.ID), domain.ErrFolderNotFound)
	assert.Equal(t, 1, env.db.quota(alice).FolderCount)
}
