package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/pgvault/pgvault/internal/domain"
)

// fakeRemoteStorage keeps remote file names with their modification times.
type fakeRemoteStorage struct {
	mu        sync.Mutex
	files     map[string]time.Time
	listErr   error
	deleteErr error
}

func newFakeRemoteStorage() *fakeRemoteStorage {
	return &fakeRemoteStorage{files: map[string]time.Time{}}
}

func (f *fakeRemoteStorage) put(name string, modTime time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[name] = modTime
}

func (f *fakeRemoteStorage) Upload(ctx context.Context, localPath, remoteName string) error {
	f.put(remoteName, time.Now())
	return nil
}

func (f *fakeRemoteStorage) List(ctx context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for name := range f.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeRemoteStorage) Delete(ctx context.Context, remoteName string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[remoteName]; !ok {
		return fmt.Errorf("%s: not found", remoteName)
	}
	delete(f.files, remoteName)
	return nil
}

func (f *fakeRemoteStorage) GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for name, modTime := range f.files {
		if modTime.Before(cutoffTime) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func remoteArchive(store *fakeRemoteStorage, kind string, ageDays int) string {
	ts := time.Now().AddDate(0, 0, -ageDays)
	name := archiveBaseName(ts, kind) + archiveSuffix
	store.put(name, ts)
	return name
}

func TestCleanup(t *testing.T) {
	Convey("Given a remote cleanup use case", t, func() {
		ctx := context.Background()
		store := newFakeRemoteStorage()

		Convey("With an age policy of 365 days", func() {
			uc := NewCleanup([]UploadTarget{{Name: "fake", Storage: store}}, domain.RetentionPolicy{
				Mode:       domain.RetentionByAge,
				MaxAgeDays: 365,
			}, testLogger{})

			Convey("When remote archives are aged 10, 400 and 1 days", func() {
				keep10 := remoteArchive(store, "daily", 10)
				remoteArchive(store, "daily", 400)
				keep1 := remoteArchive(store, "daily", 1)

				uc.Execute(ctx, "daily")

				Convey("Only the 400-day archive should be deleted", func() {
					names, err := store.List(ctx)
					So(err, ShouldBeNil)
					So(names, ShouldHaveLength, 2)
					So(names, ShouldContain, keep10)
					So(names, ShouldContain, keep1)
				})
			})

			Convey("When an old foreign file is present", func() {
				store.put("notes.txt", time.Now().AddDate(-2, 0, 0))

				uc.Execute(ctx, "")

				Convey("It should not be touched", func() {
					names, err := store.List(ctx)
					So(err, ShouldBeNil)
					So(names, ShouldResemble, []string{"notes.txt"})
				})
			})

			Convey("When the target cannot be listed", func() {
				store.listErr = fmt.Errorf("connection reset")
				remoteArchive(store, "daily", 400)

				Convey("Execute should not panic and nothing is deleted", func() {
					So(func() { uc.Execute(ctx, "daily") }, ShouldNotPanic)

					store.listErr = nil
					names, err := store.List(ctx)
					So(err, ShouldBeNil)
					So(names, ShouldHaveLength, 1)
				})
			})

			Convey("When a deletion fails", func() {
				store.deleteErr = fmt.Errorf("access denied")
				remoteArchive(store, "daily", 400)

				Convey("Execute should carry on without failing", func() {
					So(func() { uc.Execute(ctx, "daily") }, ShouldNotPanic)

					store.deleteErr = nil
					names, err := store.List(ctx)
					So(err, ShouldBeNil)
					So(names, ShouldHaveLength, 1)
				})
			})
		})

		Convey("With a keep-2 count policy", func() {
			uc := NewCleanup([]UploadTarget{{Name: "fake", Storage: store}}, domain.RetentionPolicy{
				Mode:     domain.RetentionByCount,
				MaxCount: 2,
			}, testLogger{})

			Convey("When 4 remote archives of the kind exist plus one of another kind", func() {
				var names []string
				for age := 4; age >= 1; age-- {
					names = append(names, remoteArchive(store, "daily", age))
				}
				weekly := remoteArchive(store, "weekly", 30)

				uc.Execute(ctx, "daily")

				Convey("Only the 2 newest daily archives and the weekly one should remain", func() {
					remaining, err := store.List(ctx)
					So(err, ShouldBeNil)
					So(remaining, ShouldHaveLength, 3)
					So(remaining, ShouldNotContain, names[0])
					So(remaining, ShouldNotContain, names[1])
					So(remaining, ShouldContain, names[2])
					So(remaining, ShouldContain, names[3])
					So(remaining, ShouldContain, weekly)
				})
			})

			Convey("When fewer archives exist than the limit", func() {
				kept := remoteArchive(store, "daily", 1)

				uc.Execute(ctx, "daily")

				Convey("Nothing should be deleted", func() {
					remaining, err := store.List(ctx)
					So(err, ShouldBeNil)
					So(remaining, ShouldResemble, []string{kept})
				})
			})
		})

		Convey("With no targets", func() {
			uc := NewCleanup(nil, domain.RetentionPolicy{
				Mode:       domain.RetentionByAge,
				MaxAgeDays: 365,
			}, testLogger{})

			Convey("Execute should be a no-op", func() {
				So(func() { uc.Execute(ctx, "daily") }, ShouldNotPanic)
			})
		})
	})
}
