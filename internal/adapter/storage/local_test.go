package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLocalStorage(t *testing.T) {
	Convey("Given a LocalStorage mirror", t, func() {
		tempDir, err := os.MkdirTemp("", "local_storage_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		mirrorDir := filepath.Join(tempDir, "mirror")
		local, err := NewLocal(mirrorDir)
		So(err, ShouldBeNil)

		ctx := context.Background()

		archivePath := filepath.Join(tempDir, "pgvault_20240310T030000_daily.tar.gz")
		So(os.WriteFile(archivePath, []byte("archive bytes"), 0o644), ShouldBeNil)

		Convey("Upload", func() {
			Convey("When copying an archive into the mirror", func() {
				err := local.Upload(ctx, archivePath, filepath.Base(archivePath))

				Convey("The copy should exist with identical content", func() {
					So(err, ShouldBeNil)
					content, readErr := os.ReadFile(local.GetPath(filepath.Base(archivePath)))
					So(readErr, ShouldBeNil)
					So(string(content), ShouldEqual, "archive bytes")
				})
			})

			Convey("When the source archive does not exist", func() {
				err := local.Upload(ctx, filepath.Join(tempDir, "missing.tar.gz"), "missing.tar.gz")

				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "failed to open archive")
				})
			})
		})

		Convey("List", func() {
			So(local.Upload(ctx, archivePath, "a.tar.gz"), ShouldBeNil)
			So(local.Upload(ctx, archivePath, "b.tar.gz"), ShouldBeNil)

			files, err := local.List(ctx)

			Convey("It should name every mirrored file", func() {
				So(err, ShouldBeNil)
				So(files, ShouldHaveLength, 2)
				So(files, ShouldContain, "a.tar.gz")
				So(files, ShouldContain, "b.tar.gz")
			})
		})

		Convey("Delete", func() {
			So(local.Upload(ctx, archivePath, "a.tar.gz"), ShouldBeNil)

			Convey("When deleting an existing file", func() {
				err := local.Delete(ctx, "a.tar.gz")

				So(err, ShouldBeNil)
				_, statErr := os.Stat(local.GetPath("a.tar.gz"))
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})

			Convey("When deleting a missing file", func() {
				err := local.Delete(ctx, "missing.tar.gz")

				So(err, ShouldNotBeNil)
			})
		})

		Convey("GetOldFiles", func() {
			So(local.Upload(ctx, archivePath, "old.tar.gz"), ShouldBeNil)
			So(local.Upload(ctx, archivePath, "new.tar.gz"), ShouldBeNil)

			oldTime := time.Now().AddDate(0, 0, -30)
			So(os.Chtimes(local.GetPath("old.tar.gz"), oldTime, oldTime), ShouldBeNil)

			files, err := local.GetOldFiles(ctx, time.Now().AddDate(0, 0, -7))

			Convey("It should return only files older than the cutoff", func() {
				So(err, ShouldBeNil)
				So(files, ShouldResemble, []string{"old.tar.gz"})
			})
		})
	})
}
