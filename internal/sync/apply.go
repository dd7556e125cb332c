package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"

	"github.com/nubesync/nubesync/internal/logging"
	"github.com/nubesync/nubesync/internal/metrics"
	"github.com/nubesync/nubesync/internal/planner"
	"github.com/nubesync/nubesync/internal/state"
)

const tempPrefix = ".nubesync-"

// apply executes plan against files, recording each completed operation
// in idx. It stops at the first failure.
func (s *Syncer) apply(ctx context.Context, files billy.Filesystem, root string, idx *state.Index, plan *planner.SyncPlan, res *Result) error {
	for _, op := range plan.Operations {
		if err := ctx.Err(); err != nil {
			res.Failed = op.Key
			return err
		}

		log := s.logger.With(logging.Op(op.Type), logging.Key(op.Key))
		var err error
		switch op.Type {
		case planner.OpRemove:
			err = removePath(files, op.Path)
			if err == nil {
				idx.Remove(op.Key)
				res.Removed++
			}

		case planner.OpMkdir:
			err = makeDir(files, op.Path)
			if err == nil {
				modified := op.Remote.Modified.UTC()
				idx.Put(op.Key, state.Entry{Path: op.Path, Dir: true, Modified: &modified})
				res.Created++
			}

		case planner.OpDownload:
			var n int64
			n, err = s.download(ctx, files, root, op)
			if err == nil {
				modified := op.Remote.Modified.UTC()
				idx.Put(op.Key, state.Entry{Path: op.Path, Modified: &modified, Size: n})
				res.Downloaded++
				res.Bytes += n
			}

		default:
			err = fmt.Errorf("unknown operation type %q", op.Type)
		}

		if err != nil {
			s.recorder.IncSyncOperation(op.Type, metrics.OutcomeFailed)
			res.Failed = op.Key
			log.Error("Sync operation failed", logging.Error(err))
			return fmt.Errorf("failed to %s %s: %w", op.Type, op.Key, err)
		}
		s.recorder.IncSyncOperation(op.Type, metrics.OutcomeSuccess)
		log.Debug("Applied sync operation", logging.Path(op.Path))
	}
	return nil
}

// removePath deletes p, recursively for folders. A missing path is not an
// error.
func removePath(files billy.Filesystem, p string) error {
	if _, err := files.Lstat(p); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return util.RemoveAll(files, p)
}

// makeDir creates p, replacing a file that occupies the name.
func makeDir(files billy.Filesystem, p string) error {
	info, err := files.Lstat(p)
	if err == nil && info.IsDir() {
		return nil
	}
	if err == nil {
		if err := files.Remove(p); err != nil {
			return err
		}
	}
	return files.MkdirAll(p, 0755)
}

// download streams the remote file into a temporary file next to its
// destination, then renames it into place.
func (s *Syncer) download(ctx context.Context, files billy.Filesystem, root string, op planner.Operation) (int64, error) {
	dir := path.Dir(op.Path)
	if dir != "." {
		if err := makeDir(files, dir); err != nil {
			return 0, err
		}
	}
	if info, err := files.Lstat(op.Path); err == nil && info.IsDir() {
		if err := util.RemoveAll(files, op.Path); err != nil {
			return 0, err
		}
	}

	body, err := s.remote.Open(ctx, root, op.Key)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	tmpName := path.Join(dir, tempPrefix+uuid.NewString())
	tmp, err := files.OpenFile(tmpName, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	n, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = files.Remove(tmpName)
		return 0, err
	}

	if err := files.Rename(tmpName, op.Path); err != nil {
		_ = files.Remove(tmpName)
		return 0, err
	}
	return n, nil
}
