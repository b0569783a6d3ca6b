package deploy

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"bucket-deployer/core/storage"

	"golang.org/x/sync/errgroup"
)

// contribution records which relative paths one source (asset or inline
// object) added to the final tree. Attribution is kept so duplicate
// detection can name the offending sources.
type contribution struct {
	// Source is a human-readable source label, e.g. `asset "abc123"`.
	Source string
	// Paths are the relative paths (slash form) the source contributed.
	Paths []string
}

// assemble merges all declared sources into the final directory tree.
// Every asset (fetch + extract + copy) and every inline object write runs
// concurrently; assemble returns only after all contributors finished or
// one failed. Contributors write to disjoint paths by invariant; overlaps
// are caught afterwards by findDuplicates, never resolved silently.
func assemble(ctx context.Context, client storage.Client, props Props, stagingRoot, finalDir string) ([]contribution, error) {
	contribs := make([]contribution, len(props.Assets)+len(props.Objects))

	g, gctx := errgroup.WithContext(ctx)

	for i, asset := range props.Assets {
		g.Go(func() error {
			paths, err := stageAsset(gctx, client, asset, stagingRoot)
			if err != nil {
				return err
			}
			if err := copyExtracted(assetDir(stagingRoot, asset), finalDir, paths); err != nil {
				return err
			}
			contribs[i] = contribution{
				Source: fmt.Sprintf("asset %q", asset.Hash),
				Paths:  paths,
			}
			return nil
		})
	}

	for i, obj := range props.Objects {
		g.Go(func() error {
			if err := writeInline(obj, finalDir); err != nil {
				return err
			}
			contribs[len(props.Assets)+i] = contribution{
				Source: fmt.Sprintf("object %q", obj.Key),
				Paths:  []string{obj.Key},
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return contribs, nil
}

// copyExtracted copies the listed relative paths from an asset's staging
// directory into the final tree.
func copyExtracted(srcDir, finalDir string, paths []string) error {
	for _, rel := range paths {
		src := filepath.Join(srcDir, filepath.FromSlash(rel))
		dst := filepath.Join(finalDir, filepath.FromSlash(rel))
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("%w: copying %q: %v", ErrAssembly, rel, err)
		}
	}
	return nil
}

// writeInline writes one inline object's content verbatim into the final
// tree. Keys that would escape the tree are rejected.
func writeInline(obj InlineObject, finalDir string) error {
	if obj.Key == "" || !filepath.IsLocal(filepath.FromSlash(obj.Key)) {
		return fmt.Errorf("%w: unsafe object key %q", ErrAssembly, obj.Key)
	}

	target := filepath.Join(finalDir, filepath.FromSlash(obj.Key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrAssembly, err)
	}
	if err := os.WriteFile(target, []byte(obj.Body), 0o644); err != nil {
		return fmt.Errorf("%w: writing object %q: %v", ErrAssembly, obj.Key, err)
	}

	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
