//go:build !cgo

package ocr

const backendName = "none (built without cgo)"

func recognize([]byte, string, []Level) ([]Region, error) {
	return nil, ErrUnavailable
}

func readText([]byte, string) (string, float64, error) {
	return "", 0, ErrUnavailable
}

// Version reports ErrUnavailable: this binary was built without cgo.
func Version() (string, error) {
	return "", ErrUnavailable
}
