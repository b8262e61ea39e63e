package filestorage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/artfundry/bounty-server/internal/config"
)

type LocalFileStorage struct {
	host      string
	port      int
	assetsDir string
	tempDir   string
}

func NewLocalFileStorage(cfg *config.Config) (*LocalFileStorage, error) {
	return &LocalFileStorage{
		host:      cfg.Host,
		port:      cfg.Port,
		assetsDir: cfg.AssetsDir,
		tempDir:   cfg.TempDir,
	}, nil
}

func (u *LocalFileStorage) Upload(file FileInfo) (string, error) {
	if file.Content == nil {
		return "", ErrNoContent
	}

	var filedest string
	if file.IsTemp {
		filedest = filepath.Join(u.tempDir, fmt.Sprintf("%s%s", file.Name, file.Extension))
	} else {
		filedest = filepath.Join(u.assetsDir, fmt.Sprintf("%s%s", file.Name, file.Extension))
	}

	if err := os.MkdirAll(filepath.Dir(filedest), os.ModePerm); err != nil {
		return "", err
	}

	if err := os.WriteFile(filedest, file.Content, os.FileMode(0644)); err != nil {
		return "", err
	}

	return fmt.Sprintf("http://%s:%d/file/%s%s", u.host, u.port, file.Name, file.Extension), nil
}

func (u *LocalFileStorage) UploadMultiple(files []FileInfo) ([]string, error) {
	var uploadedFiles []string
	for _, file := range files {
		destination, err := u.Upload(file)
		if err != nil {
			return nil, err
		}

		uploadedFiles = append(uploadedFiles, destination)
	}

	return uploadedFiles, nil
}

func (u *LocalFileStorage) GetFile(filename string) (*FileInfo, error) {
	file, err := os.Open(filepath.Join(u.assetsDir, filename))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	return &FileInfo{
		Name:      filename,
		Extension: filepath.Ext(filename),
		Content:   content,
		IsTemp:    false,
	}, nil
}

func (u *LocalFileStorage) ResolveFile(filename string, subfolder string, isTemp bool) (string, error) {
	var resolvedFilename string
	if isTemp {
		resolvedFilename = filepath.Join(u.tempDir, subfolder, filename)
	} else {
		resolvedFilename = filepath.Join(u.assetsDir, subfolder, filename)
	}

	if _, err := os.Stat(resolvedFilename); err != nil {
		return "", err
	}

	return resolvedFilename, nil
}
