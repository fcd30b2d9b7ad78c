package filesvc

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sir_venger/flatstore/internal/models"
)

// MaxNameLength ограничение большинства файловых систем на длину имени.
const MaxNameLength = 255

// ValidateName проверяет, что имя является одним элементом плоского пространства имён.
// Имена не исправляются: всё подозрительное отклоняется.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name is empty", models.ErrInvalidName)
	case len(name) > MaxNameLength:
		return fmt.Errorf("%w: name is longer than %d bytes", models.ErrInvalidName, MaxNameLength)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q is reserved", models.ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", models.ErrInvalidName, name)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: name is not valid UTF-8", models.ErrInvalidName)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains a control character", models.ErrInvalidName, name)
		}
	}

	return nil
}
