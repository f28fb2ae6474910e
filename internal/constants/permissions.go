package constants

import "os"

// Права на каталоги и файлы, создаваемые logtree.
const (
	// DirPermStandard — каталоги файлов логов (owner rwx, group r-x).
	DirPermStandard os.FileMode = 0750

	// FilePermPrivate — файлы с чувствительными данными (owner rw).
	FilePermPrivate os.FileMode = 0600
)
