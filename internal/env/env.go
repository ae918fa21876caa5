package env

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Load reads dotenv files in order. Later files override earlier ones, but a
// variable already present in the process environment always wins. Missing
// files are skipped.
func Load(paths ...string) error {
	merged := map[string]string{}
	for _, p := range paths {
		if p == "" {
			continue
		}
		vals, err := godotenv.Read(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		for k, v := range vals {
			merged[k] = v
		}
	}
	for k, v := range merged {
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}
	return nil
}
