package analytics

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/google/uuid"

	"github.com/macropower/chipper/api"
)

// LoadOrCreateUserID returns the user ID stored at path, generating and
// storing a new random one if there is none. The created result reports
// whether the ID is new, in which case the caller should record
// [KindInstalled].
func LoadOrCreateUserID(path string) (id string, created bool, err error) {
	data, err := api.ReadFile(path)
	if err == nil {
		id = strings.TrimSpace(string(data))

		_, perr := uuid.Parse(id)
		if perr == nil {
			return id, false, nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", false, fmt.Errorf("read user id: %w", err)
	}

	id = uuid.NewString()

	err = api.WriteFile(path, []byte(id+"\n"))
	if err != nil {
		return "", false, fmt.Errorf("write user id: %w", err)
	}

	return id, true, nil
}
