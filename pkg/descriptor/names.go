package descriptor

import "strings"

// SplitNames splits a comma separated list. Spaces are ignored
// and a trailing empty element is dropped.
func SplitNames(str string) []string {
	str = strings.Replace(str, " ", "", -1)
	if str == "" {
		return nil
	}
	names := strings.Split(str, ",")
	if names[len(names)-1] == "" {
		names = names[:len(names)-1]
	}
	return names
}

// DataToString returns the bytes up to the first NUL.
func DataToString(data []byte) string {
	for n, b := range data {
		if b == 0 {
			return string(data[:n])
		}
	}
	return string(data)
}
