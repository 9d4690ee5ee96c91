package domain

type Archiver interface {
	Pack(sourceDir, destPath string) error
	Unpack(sourcePath, destDir string) error
}
