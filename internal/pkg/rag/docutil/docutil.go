// Package docutil 提供文档处理相关的工具函数。
package docutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultExtensions 是默认收录的文档扩展名。
var DefaultExtensions = []string{".md", ".mdx", ".txt", ".pdf"}

// File 是从磁盘读取的一篇文档。
type File struct {
	// Name 相对于文档根目录的路径，使用 / 分隔。
	Name string
	// Path 文件的完整路径。
	Path string
	// Text 文档纯文本。
	Text string
}

// FindFiles 在目录中查找匹配指定扩展名的文件，结果按路径排序。
// extensions 是文件扩展名列表，如 []string{".md", ".mdx"}。
func FindFiles(dir string, extensions []string) ([]string, error) {
	var files []string
	extMap := make(map[string]bool)
	for _, ext := range extensions {
		extMap[strings.ToLower(ext)] = true
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && extMap[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)

	return files, err
}

// ReadText 读取文件的纯文本内容，PDF 会抽取文本层。
func ReadText(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return readPDF(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Load 读取 root 下所有匹配扩展名的文档。
func Load(root string, extensions []string) ([]File, error) {
	paths, err := FindFiles(root, extensions)
	if err != nil {
		return nil, err
	}

	files := make([]File, 0, len(paths))
	for _, p := range paths {
		f, err := LoadFile(root, p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// LoadFile 读取单个文档，名称取相对 root 的路径。
func LoadFile(root, path string) (File, error) {
	text, err := ReadText(path)
	if err != nil {
		return File{}, err
	}
	name, err := filepath.Rel(root, path)
	if err != nil {
		name = filepath.Base(path)
	}
	return File{Name: filepath.ToSlash(name), Path: path, Text: text}, nil
}

// HasExtension 判断路径是否使用给定扩展名之一。
func HasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// DirExists 检查目录是否存在。
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
