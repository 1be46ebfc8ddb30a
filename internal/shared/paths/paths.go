package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// AppName is the directory name used under the user's config dir.
const AppName = "PortableShelf"

// Default file and directory names inside DataDir.
const (
	AppsDirName   = "Portable apps"
	IconsDirName  = "Icons"
	StoreFileName = "portable_apps.json"
)

// DefaultIconExt is the icon extension used when none is configured.
const DefaultIconExt = "ico"

// DataDir returns the per-user data directory. It falls back to the working
// directory when the OS does not report a config dir.
func DataDir() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		if abs, err := filepath.Abs(AppName); err == nil {
			return abs
		}
		return AppName
	}
	return filepath.Join(base, AppName)
}

// AppsDir is the default managed directory scanned for executables.
func AppsDir() string {
	return filepath.Join(DataDir(), AppsDirName)
}

// IconsDir is the default icon root.
func IconsDir() string {
	return filepath.Join(DataDir(), IconsDirName)
}

// StorePath is the default record file location.
func StorePath() string {
	return filepath.Join(DataDir(), StoreFileName)
}

// NameFromPath derives an app name from an executable path: the file name
// without its final extension.
func NameFromPath(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IconFor derives the icon location for an app name. It is recomputed on
// every display, so renaming an app changes which icon is looked up.
func IconFor(iconRoot, name, ext string) string {
	if ext == "" {
		ext = DefaultIconExt
	}
	return filepath.Join(iconRoot, name+"."+strings.TrimPrefix(ext, "."))
}

// ResolveIcon returns IconFor when the icon file exists, and "" otherwise.
func ResolveIcon(iconRoot, name, ext string) string {
	p := IconFor(iconRoot, name, ext)
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		return p
	}
	return ""
}

// Exists reports whether p names an existing filesystem entry.
func Exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
