package migrate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathsToFileIndex(t *testing.T) {
	out, err := pathsToFileIndex(Env{}, []byte(`{"paths": {"/dav/a/": "/out/a", "/dav/a/b.txt": "/out/a/b.txt"}}`))
	require.NoError(t, err)

	var got filesV1
	require.NoError(t, json.Unmarshal(out, &got))
	assert.True(t, got.Files["/dav/a/"].IsDir)
	assert.False(t, got.Files["/dav/a/b.txt"].IsDir)
	assert.Equal(t, "/out/a/b.txt", got.Files["/dav/a/b.txt"].Path)
	assert.Nil(t, got.Files["/dav/a/b.txt"].LastModified)
}

func TestFileIndexToManifest(t *testing.T) {
	env := Env{OutDir: "/srv/out", RemoteRoot: "Docs/", RemoteBase: "/dav/Docs/"}

	t.Run("rewrites hrefs into keys", func(t *testing.T) {
		raw := `{"files": {
			"/dav/Docs/": {"path": "/srv/out", "is_dir": true, "last_modified": null},
			"/dav/Docs/sub": {"path": "/srv/out/sub", "is_dir": true, "last_modified": null},
			"/dav/Docs/sub/r%C3%A9sum%C3%A9.pdf": {"path": "/srv/out/sub/résumé.pdf", "is_dir": false, "last_modified": "2023-01-02T03:04:05Z"},
			"/dav/Docs/rel.txt": {"path": "out/rel.txt", "is_dir": false, "last_modified": null}
		}}`
		out, err := fileIndexToManifest(env, []byte(raw))
		require.NoError(t, err)

		var got manifestV2
		require.NoError(t, json.Unmarshal(out, &got))
		assert.Equal(t, 2, got.SchemaVersion)
		assert.Equal(t, "Docs/", got.RemoteRoot)
		assert.Len(t, got.Entries, 3, "the remote root itself is not an entry")

		assert.Equal(t, entryV2{Path: "sub", Dir: true}, got.Entries["sub/"])
		pdf := got.Entries["sub/résumé.pdf"]
		assert.Equal(t, "sub/résumé.pdf", pdf.Path)
		require.NotNil(t, pdf.Modified)
		assert.Equal(t, "rel.txt", got.Entries["rel.txt"].Path)
	})

	t.Run("href outside remote base", func(t *testing.T) {
		_, err := fileIndexToManifest(env, []byte(`{"files": {"/dav/Other/x": {"path": "/srv/out/x", "is_dir": false, "last_modified": null}}}`))
		assert.ErrorContains(t, err, "outside remote base")
	})

	t.Run("path outside output directory", func(t *testing.T) {
		_, err := fileIndexToManifest(env, []byte(`{"files": {"/dav/Docs/x": {"path": "/etc/x", "is_dir": false, "last_modified": null}}}`))
		assert.ErrorContains(t, err, "outside output directory")
	})

	t.Run("incomplete environment", func(t *testing.T) {
		_, err := fileIndexToManifest(Env{OutDir: "/srv/out"}, []byte(`{"files": {}}`))
		assert.ErrorIs(t, err, ErrIncompleteEnv)
	})
}
