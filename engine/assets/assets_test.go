package assets

import (
	"context"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/texstream/engine/assets/loaders"
	"github.com/spaghettifunk/texstream/engine/core"
	"github.com/spaghettifunk/texstream/engine/renderer/metadata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
	require.NoError(t, f.Close())
}

func writeMipChain(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, loaders.WriteMipChain(f, loaders.BakeMipChain("chain", image.NewRGBA(image.Rect(0, 0, 4, 4)))))
	require.NoError(t, f.Close())
}

func newManager(t *testing.T, dir string, watch bool) *AssetManager {
	t.Helper()
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(AssetManagerConfig{Dir: dir, Watch: watch, MaxConcurrentDecodes: 2}))
	t.Cleanup(func() { am.Shutdown() })
	return am
}

func TestAssetManager_IndexesTree(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "images", "brick.png"), 4, 2)
	writeMipChain(t, filepath.Join(dir, "brick.tmip"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	am := newManager(t, dir, false)
	assert.Equal(t, 2, am.Len())

	info, ok := am.Resolve("images/brick.png")
	require.True(t, ok)
	assert.Equal(t, metadata.ResourceTypeImage, info.Type)
	_, ok = am.Resolve("./images/../brick.tmip")
	assert.True(t, ok)
	_, ok = am.Resolve("notes.txt")
	assert.False(t, ok)
}

func TestAssetManager_LoadAsset(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "brick.png"), 4, 2)
	writeMipChain(t, filepath.Join(dir, "brick.tmip"))
	am := newManager(t, dir, false)
	ctx := context.Background()

	res, err := am.LoadAsset(ctx, "brick.png", metadata.ResourceTypeImage, nil)
	require.NoError(t, err)
	img := res.Data.(*metadata.ImageResourceData)
	assert.Equal(t, uint32(4), img.Width)
	assert.NoError(t, am.UnloadAsset(metadata.ResourceTypeImage, res))

	info, _ := am.Resolve("brick.png")
	assert.False(t, info.LastLoaded.IsZero())

	res, err = am.LoadAsset(ctx, "brick.tmip", metadata.ResourceTypeMipChain, &metadata.MipChainResourceParams{Level: metadata.MipLevelFirst})
	require.NoError(t, err)
	assert.Equal(t, metadata.TextureOriginCompressedFirstMip, res.Data.(*metadata.Texture).Origin)

	_, err = am.LoadAsset(ctx, "missing.png", metadata.ResourceTypeImage, nil)
	assert.ErrorIs(t, err, core.ErrAssetNotFound)

	_, err = am.LoadAsset(ctx, "brick.png", metadata.ResourceTypeMipChain, nil)
	assert.Error(t, err, "type mismatch")
}

func TestAssetManager_WatchKeepsIndexCurrent(t *testing.T) {
	dir := t.TempDir()
	am := newManager(t, dir, true)
	assert.Zero(t, am.Len())

	path := filepath.Join(dir, "late.png")
	writePNG(t, path, 2, 2)
	assert.Eventually(t, func() bool {
		_, ok := am.Resolve("late.png")
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	nested := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(nested, 0o755))
	writePNG(t, filepath.Join(nested, "deep.png"), 2, 2)
	assert.Eventually(t, func() bool {
		_, ok := am.Resolve("nested/deep.png")
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		_, ok := am.Resolve("late.png")
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
}

func TestAssetManager_Initialize(t *testing.T) {
	am, err := NewAssetManager()
	require.NoError(t, err)
	assert.Error(t, am.Initialize(AssetManagerConfig{Dir: filepath.Join(t.TempDir(), "missing")}))

	file := filepath.Join(t.TempDir(), "file.png")
	writePNG(t, file, 1, 1)
	assert.Error(t, am.Initialize(AssetManagerConfig{Dir: file}))
}

func TestAssetType(t *testing.T) {
	for name, want := range map[string]metadata.ResourceType{
		"a.PNG":      metadata.ResourceTypeImage,
		"a.webp":     metadata.ResourceTypeImage,
		"a.tmip":     metadata.ResourceTypeMipChain,
		"scene.toml": metadata.ResourceTypeScene,
	} {
		got, err := AssetType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := AssetType("readme.md")
	assert.Error(t, err)
}
