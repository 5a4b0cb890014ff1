package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// BrowsersFromPackageJSON reads the "browserslist" field of a package.json.
// A missing file or field yields a nil slice. The field may be an array or a
// comma separated string.
func BrowsersFromPackageJSON(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	if !gjson.ValidBytes(data) {
		return nil, nil
	}

	field := gjson.GetBytes(data, "browserslist")
	if !field.Exists() {
		return nil, nil
	}

	var browsers []string
	if field.IsArray() {
		for _, item := range field.Array() {
			if s := strings.TrimSpace(item.String()); s != "" {
				browsers = append(browsers, s)
			}
		}
		return browsers, nil
	}

	for _, s := range strings.Split(field.String(), ",") {
		if s = strings.TrimSpace(s); s != "" {
			browsers = append(browsers, s)
		}
	}
	return browsers, nil
}
