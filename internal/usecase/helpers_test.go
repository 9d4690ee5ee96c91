package usecase

import (
	"sort"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestArchiveNaming(t *testing.T) {
	Convey("Given the archive naming scheme", t, func() {
		Convey("When two runs of the same kind happen in order", func() {
			t1 := time.Date(2024, 3, 9, 23, 59, 59, 0, time.UTC)
			t2 := time.Date(2024, 3, 10, 0, 0, 1, 0, time.UTC)

			name1 := archiveBaseName(t1, "daily")
			name2 := archiveBaseName(t2, "daily")

			Convey("Their names should sort chronologically", func() {
				names := []string{name2, name1}
				sort.Strings(names)
				So(names[0], ShouldEqual, name1)
				So(names[1], ShouldEqual, name2)
			})
		})

		Convey("matchesArchive", func() {
			name := archiveBaseName(time.Now(), "daily") + archiveSuffix

			Convey("It should accept well-formed names", func() {
				So(matchesArchive(name, "daily"), ShouldBeTrue)
				So(matchesArchive(name, ""), ShouldBeTrue)
			})

			Convey("It should reject other kinds", func() {
				So(matchesArchive(name, "weekly"), ShouldBeFalse)
			})

			Convey("It should handle kind labels containing underscores", func() {
				underscored := archiveBaseName(time.Now(), "pre_release") + archiveSuffix
				So(matchesArchive(underscored, "pre_release"), ShouldBeTrue)
				So(matchesArchive(underscored, "release"), ShouldBeFalse)
			})

			Convey("It should reject foreign files", func() {
				So(matchesArchive("notes.txt", ""), ShouldBeFalse)
				So(matchesArchive("pgvault_notatimestamp_daily.tar.gz", ""), ShouldBeFalse)
				So(matchesArchive("pgvault_20240310T000001_daily", "daily"), ShouldBeFalse)
				So(matchesArchive("pgvault_20240310T000001.tar.gz", ""), ShouldBeFalse)
			})
		})
	})
}
