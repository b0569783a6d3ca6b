package deploy

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"bucket-deployer/core/storage"

	"github.com/klauspost/compress/zip"
	"github.com/minio/minio-go/v7"
)

// stageAsset downloads one archive asset into the staging area and extracts
// it into the asset's staging subdirectory (<stagingRoot>/<hash>).
// It returns the extracted relative file paths in slash form, directories
// excluded. Entries that would escape the destination are rejected.
func stageAsset(ctx context.Context, client storage.Client, asset Asset, stagingRoot string) ([]string, error) {
	archivePath := filepath.Join(stagingRoot, asset.Hash+".zip")
	extractDir := assetDir(stagingRoot, asset)

	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating staging directory: %v", ErrAssembly, err)
	}

	if err := fetchArchive(ctx, client, asset, archivePath); err != nil {
		return nil, err
	}

	return extractArchive(archivePath, extractDir)
}

// assetDir returns the staging subdirectory for one asset.
func assetDir(stagingRoot string, asset Asset) string {
	return filepath.Join(stagingRoot, asset.Hash)
}

// fetchArchive streams the remote archive to local disk. The archive never
// lives fully in memory; disk usage is bounded by the archive itself plus
// its extraction.
func fetchArchive(ctx context.Context, client storage.Client, asset Asset, archivePath string) error {
	obj, err := client.GetObject(ctx, asset.SourceBucket, asset.SourceKey, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("%w: %s/%s: %v", ErrFetch, asset.SourceBucket, asset.SourceKey, err)
	}
	defer obj.Close()

	f, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("%w: creating local archive file: %v", ErrAssembly, err)
	}
	defer f.Close()

	// Minio opens objects lazily, so a missing remote object surfaces here.
	if _, err := io.Copy(f, obj); err != nil {
		return fmt.Errorf("%w: %s/%s: %v", ErrFetch, asset.SourceBucket, asset.SourceKey, err)
	}

	return nil
}

// extractArchive decodes the zip archive into destDir and returns the
// relative paths of all extracted files.
func extractArchive(archivePath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, filepath.Base(archivePath), err)
	}
	defer r.Close()

	var paths []string
	for _, f := range r.File {
		name := f.Name
		if name == "" || !filepath.IsLocal(filepath.FromSlash(name)) {
			return nil, fmt.Errorf("%w: unsafe entry path %q", ErrDecode, name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(filepath.Join(destDir, filepath.FromSlash(name)), 0o755); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrAssembly, err)
			}
			continue
		}

		if err := extractFile(f, destDir); err != nil {
			return nil, err
		}
		paths = append(paths, name)
	}

	return paths, nil
}

func extractFile(f *zip.File, destDir string) error {
	target := filepath.Join(destDir, filepath.FromSlash(f.Name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrAssembly, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: entry %q: %v", ErrDecode, f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssembly, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("%w: entry %q: %v", ErrDecode, f.Name, err)
	}

	return nil
}
