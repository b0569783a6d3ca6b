package deploy

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"bucket-deployer/core/storage"

	"github.com/minio/minio-go/v7"
)

// fallbackContentType is used for keys whose extension is unrecognized.
const fallbackContentType = "text/html"

// mirrorStats summarizes one mirror run.
type mirrorStats struct {
	Uploaded int
	Skipped  int
	Deleted  int
}

// mirror makes the remote bucket's object set (under the locator prefix)
// exactly equal to the local tree: new or changed files are uploaded with
// extension-derived content types, remote objects with no local counterpart
// are deleted. An empty local tree empties the bucket.
//
// Any individual object failure aborts the whole mirror; a partial state is
// never reported as success.
func mirror(ctx context.Context, client storage.Client, localDir string, loc BucketLocator) (*mirrorStats, error) {
	remote, err := listRemote(ctx, client, loc)
	if err != nil {
		return nil, err
	}

	stats := &mirrorStats{}
	local := make(map[string]struct{})

	err = filepath.WalkDir(localDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("%w: reading local tree: %v", ErrMirror, walkErr)
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMirror, err)
		}
		key := loc.Key(filepath.ToSlash(rel))
		local[key] = struct{}{}

		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("%w: reading %q: %v", ErrMirror, rel, err)
		}

		if info, ok := remote[key]; ok && unchanged(info, data) {
			stats.Skipped++
			return nil
		}

		opts := minio.PutObjectOptions{ContentType: contentTypeFor(key)}
		if _, err := client.PutObject(ctx, loc.Bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
			return fmt.Errorf("%w: uploading %q: %v", ErrMirror, key, err)
		}
		stats.Uploaded++
		return nil
	})
	if err != nil {
		return nil, err
	}

	deleted, err := deleteStale(ctx, client, loc.Bucket, remote, local)
	if err != nil {
		return nil, err
	}
	stats.Deleted = deleted

	return stats, nil
}

// listRemote indexes the bucket's current objects under the prefix.
func listRemote(ctx context.Context, client storage.Client, loc BucketLocator) (map[string]minio.ObjectInfo, error) {
	remote := make(map[string]minio.ObjectInfo)
	for obj := range client.ListObjects(ctx, loc.Bucket, minio.ListObjectsOptions{
		Prefix:    loc.Prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: listing bucket %s: %v", ErrMirror, loc.Bucket, obj.Err)
		}
		remote[obj.Key] = obj
	}
	return remote, nil
}

// unchanged reports whether the remote object already matches the local
// content. Multipart-style ETags (containing "-") cannot be compared
// against a plain MD5, so those objects are re-uploaded.
func unchanged(info minio.ObjectInfo, data []byte) bool {
	if info.Size != int64(len(data)) {
		return false
	}
	etag := strings.Trim(info.ETag, `"`)
	if etag == "" || strings.Contains(etag, "-") {
		return false
	}
	sum := md5.Sum(data)
	return etag == hex.EncodeToString(sum[:])
}

// deleteStale removes remote objects with no local counterpart.
func deleteStale(ctx context.Context, client storage.Client, bucket string, remote map[string]minio.ObjectInfo, local map[string]struct{}) (int, error) {
	var stale []string
	for key := range remote {
		if _, ok := local[key]; !ok {
			stale = append(stale, key)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(stale))
	for _, key := range stale {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)

	for removeErr := range client.RemoveObjects(ctx, bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if removeErr.Err != nil {
			return 0, fmt.Errorf("%w: deleting %q: %v", ErrMirror, removeErr.ObjectName, removeErr.Err)
		}
	}

	return len(stale), nil
}

// contentTypeFor derives the content type from the key's extension.
func contentTypeFor(key string) string {
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	return fallbackContentType
}
