package blackboard

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/khaledhikmat/tandem-go/model"
)

const (
	sharedDBName    = "blackboard.db"
	imageLockName   = "image.lock"
	resultLockName  = "result.lock"
	lockRetryDelay  = time.Millisecond
	keyBoxes        = "boxes"
	keySeed         = "seed"
	sharedSchemaSQL = `
CREATE TABLE IF NOT EXISTS image (
    id          INTEGER PRIMARY KEY CHECK (id = 1),
    seq         INTEGER NOT NULL,
    captured_at TEXT NOT NULL,
    width       INTEGER NOT NULL,
    height      INTEGER NOT NULL,
    channels    INTEGER NOT NULL,
    data        BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
    key        TEXT PRIMARY KEY,
    detections TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`
)

// Resetter is implemented by backings whose state outlives a process.
type Resetter interface {
	Reset(ctx context.Context) error
}

// domainLock is one lock domain usable across processes. The semaphore keeps
// goroutines of the same process apart; the file lock keeps processes apart.
type domainLock struct {
	sem chan struct{}
	fl  *flock.Flock
}

func newDomainLock(path string) *domainLock {
	return &domainLock{sem: make(chan struct{}, 1), fl: flock.New(path)}
}

func (l *domainLock) lock(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("lock %s: %w", l.fl.Path(), ctx.Err())
	}

	ok, err := l.fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !ok {
		<-l.sem
		if err == nil {
			err = errors.New("not acquired")
		}
		return fmt.Errorf("lock %s: %w", l.fl.Path(), err)
	}
	return nil
}

func (l *domainLock) unlock() error {
	err := l.fl.Unlock()
	<-l.sem
	return err
}

type sharedService struct {
	db     *sql.DB
	dir    string
	image  *domainLock
	result *domainLock
}

// NewShared opens (creating if needed) a blackboard under dir that several
// processes can use at once.
func NewShared(ctx context.Context, dir string) (IService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blackboard dir: %w", err)
	}

	// Pragmas go in the DSN so that every pooled connection gets them.
	dsn := "file:" + filepath.Join(dir, sharedDBName) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	svc := &sharedService{
		db:     db,
		dir:    dir,
		image:  newDomainLock(filepath.Join(dir, imageLockName)),
		result: newDomainLock(filepath.Join(dir, resultLockName)),
	}

	if err := svc.withBoth(ctx, func() error {
		_, err := db.ExecContext(ctx, sharedSchemaSQL)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return svc, nil
}

func (svc *sharedService) withBoth(ctx context.Context, fn func() error) error {
	if err := svc.image.lock(ctx); err != nil {
		return err
	}
	defer svc.image.unlock()
	if err := svc.result.lock(ctx); err != nil {
		return err
	}
	defer svc.result.unlock()
	return fn()
}

func (svc *sharedService) within(ctx context.Context, l *domainLock, fn func() error) (err error) {
	if err := l.lock(ctx); err != nil {
		return err
	}
	defer func() {
		if uerr := l.unlock(); uerr != nil && err == nil {
			err = fmt.Errorf("unlock %s: %w", l.fl.Path(), uerr)
		}
	}()
	return fn()
}

func (svc *sharedService) PutImage(ctx context.Context, frame model.Frame) error {
	data := frame.Data
	if data == nil {
		data = []byte{}
	}

	return svc.within(ctx, svc.image, func() error {
		_, err := svc.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO image (id, seq, captured_at, width, height, channels, data)
             VALUES (1, ?, ?, ?, ?, ?, ?)`,
			frame.Seq,
			frame.Timestamp.UTC().Format(time.RFC3339Nano),
			frame.Width,
			frame.Height,
			frame.Channels,
			data,
		)
		if err != nil {
			return fmt.Errorf("put image: %w", err)
		}
		return nil
	})
}

func (svc *sharedService) GetImage(ctx context.Context) (model.Frame, bool, error) {
	var frame model.Frame
	var found bool

	err := svc.within(ctx, svc.image, func() error {
		var capturedAt string
		row := svc.db.QueryRowContext(ctx,
			`SELECT seq, captured_at, width, height, channels, data FROM image WHERE id = 1`)
		err := row.Scan(&frame.Seq, &capturedAt, &frame.Width, &frame.Height, &frame.Channels, &frame.Data)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get image: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, capturedAt)
		if err != nil {
			return fmt.Errorf("parse image timestamp: %w", err)
		}
		frame.Timestamp = ts
		found = true
		return nil
	})
	if err != nil {
		return model.Frame{}, false, err
	}

	return frame, found, nil
}

func (svc *sharedService) PutBoxes(ctx context.Context, set model.DetectionSet) error {
	return svc.within(ctx, svc.result, func() error {
		return svc.putResult(ctx, svc.db, keyBoxes, set)
	})
}

func (svc *sharedService) GetBoxes(ctx context.Context) (model.DetectionSet, bool, error) {
	var set model.DetectionSet
	var found bool
	err := svc.within(ctx, svc.result, func() error {
		var err error
		set, found, err = svc.getResult(ctx, keyBoxes)
		return err
	})
	return set, found, err
}

func (svc *sharedService) PutSeed(ctx context.Context, set model.DetectionSet) error {
	return svc.within(ctx, svc.result, func() error {
		return svc.putResult(ctx, svc.db, keySeed, set)
	})
}

func (svc *sharedService) PublishDetection(ctx context.Context, set model.DetectionSet) error {
	return svc.within(ctx, svc.result, func() error {
		tx, err := svc.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin publish: %w", err)
		}
		defer tx.Rollback()

		if err := svc.putResult(ctx, tx, keyBoxes, set); err != nil {
			return err
		}
		if err := svc.putResult(ctx, tx, keySeed, set); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit publish: %w", err)
		}
		return nil
	})
}

func (svc *sharedService) TakeSeed(ctx context.Context) (model.DetectionSet, bool, error) {
	var set model.DetectionSet
	var found bool
	err := svc.within(ctx, svc.result, func() error {
		var err error
		set, found, err = svc.getResult(ctx, keySeed)
		if err != nil || !found {
			return err
		}
		if _, err := svc.db.ExecContext(ctx, `DELETE FROM results WHERE key = ?`, keySeed); err != nil {
			found = false
			return fmt.Errorf("clear seed: %w", err)
		}
		return nil
	})
	return set, found, err
}

// Reset drops any state left over from a previous session.
func (svc *sharedService) Reset(ctx context.Context) error {
	return svc.withBoth(ctx, func() error {
		if _, err := svc.db.ExecContext(ctx, `DELETE FROM image`); err != nil {
			return fmt.Errorf("reset image: %w", err)
		}
		if _, err := svc.db.ExecContext(ctx, `DELETE FROM results`); err != nil {
			return fmt.Errorf("reset results: %w", err)
		}
		return nil
	})
}

func (svc *sharedService) Close() error {
	if svc == nil || svc.db == nil {
		return nil
	}
	return svc.db.Close()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (svc *sharedService) putResult(ctx context.Context, db execer, key string, set model.DetectionSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT OR REPLACE INTO results (key, detections, updated_at) VALUES (?, ?, ?)`,
		key,
		string(data),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (svc *sharedService) getResult(ctx context.Context, key string) (model.DetectionSet, bool, error) {
	var raw string
	row := svc.db.QueryRowContext(ctx, `SELECT detections FROM results WHERE key = ?`, key)
	err := row.Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}

	var set model.DetectionSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return nil, false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return set, true, nil
}
