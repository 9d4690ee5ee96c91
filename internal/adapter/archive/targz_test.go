package archive

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTarGz(t *testing.T) {
	Convey("Given a TarGz archiver", t, func() {
		archiver := NewTarGz()

		workDir, err := os.MkdirTemp("", "targz_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(workDir)

		Convey("When packing and unpacking a staging directory", func() {
			sourceDir := filepath.Join(workDir, "staging")
			So(os.MkdirAll(sourceDir, 0o755), ShouldBeNil)
			So(os.WriteFile(filepath.Join(sourceDir, "global_objects.sql"), []byte("-- roles\n"), 0o644), ShouldBeNil)
			So(os.WriteFile(filepath.Join(sourceDir, "app1.backup"), []byte("binary dump"), 0o644), ShouldBeNil)

			archivePath := filepath.Join(workDir, "backup.tar.gz")

			Convey("It should round-trip the contents exactly", func() {
				So(archiver.Pack(sourceDir, archivePath), ShouldBeNil)

				// No .partial file may survive a successful pack.
				_, err := os.Stat(archivePath + ".partial")
				So(os.IsNotExist(err), ShouldBeTrue)

				destDir := filepath.Join(workDir, "extracted")
				So(archiver.Unpack(archivePath, destDir), ShouldBeNil)

				globals, err := os.ReadFile(filepath.Join(destDir, "global_objects.sql"))
				So(err, ShouldBeNil)
				So(string(globals), ShouldEqual, "-- roles\n")

				dump, err := os.ReadFile(filepath.Join(destDir, "app1.backup"))
				So(err, ShouldBeNil)
				So(string(dump), ShouldEqual, "binary dump")

				entries, err := os.ReadDir(destDir)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
			})
		})

		Convey("When the source directory does not exist", func() {
			archivePath := filepath.Join(workDir, "backup.tar.gz")

			err := archiver.Pack(filepath.Join(workDir, "missing"), archivePath)

			Convey("It should fail and leave no partial file", func() {
				So(err, ShouldNotBeNil)
				_, statErr := os.Stat(archivePath + ".partial")
				So(os.IsNotExist(statErr), ShouldBeTrue)
				_, statErr = os.Stat(archivePath)
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})

		Convey("When unpacking a file that is not a gzip archive", func() {
			badPath := filepath.Join(workDir, "bad.tar.gz")
			So(os.WriteFile(badPath, []byte("not gzip"), 0o644), ShouldBeNil)

			err := archiver.Unpack(badPath, filepath.Join(workDir, "out"))

			Convey("It should return a gzip error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "gzip")
			})
		})

		Convey("When an archive member tries to escape the destination", func() {
			evilPath := filepath.Join(workDir, "evil.tar.gz")

			file, err := os.Create(evilPath)
			So(err, ShouldBeNil)
			gzipWriter := gzip.NewWriter(file)
			tarWriter := tar.NewWriter(gzipWriter)
			content := []byte("pwned")
			So(tarWriter.WriteHeader(&tar.Header{
				Name:     "../escape.txt",
				Mode:     0o644,
				Size:     int64(len(content)),
				Typeflag: tar.TypeReg,
			}), ShouldBeNil)
			_, err = tarWriter.Write(content)
			So(err, ShouldBeNil)
			So(tarWriter.Close(), ShouldBeNil)
			So(gzipWriter.Close(), ShouldBeNil)
			So(file.Close(), ShouldBeNil)

			err = archiver.Unpack(evilPath, filepath.Join(workDir, "out"))

			Convey("It should refuse the member", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "escapes destination")
				_, statErr := os.Stat(filepath.Join(workDir, "escape.txt"))
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})
	})
}
