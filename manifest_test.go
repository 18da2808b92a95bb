package cocoyolo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestWriter(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "train.txt")
	images := []string{
		filepath.Join(base, "images", "train", "b.jpg"),
		filepath.Join(base, "images", "train", "a.jpg"),
	}

	write := func() {
		m, err := OpenManifest(path, base)
		require.NoError(t, err)
		for _, img := range images {
			require.NoError(t, m.Append(img))
		}
		assert.Equal(t, len(images), m.Count())
		require.NoError(t, m.Close())
	}

	write()
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "./images/train/b.jpg\n./images/train/a.jpg\n", string(got))

	// A second run appends, duplicating the entries.
	write()
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"./images/train/b.jpg\n./images/train/a.jpg\n./images/train/b.jpg\n./images/train/a.jpg\n",
		string(got))
}

func TestManifestLine(t *testing.T) {
	base := t.TempDir()

	line, err := ManifestLine(base, filepath.Join(base, "img", "val", "x.png"))
	require.NoError(t, err)
	assert.Equal(t, "./img/val/x.png", line)

	line, err = ManifestLine(filepath.Join(base, "dataset"), filepath.Join(base, "shared", "x.png"))
	require.NoError(t, err)
	assert.Equal(t, "./../shared/x.png", line)
}
