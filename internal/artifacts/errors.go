package artifacts

import "fmt"

// LoadError reports an artifact that could not be fetched, decoded or
// reconciled with the others. It is fatal at startup.
type LoadError struct {
	Artifact string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load artifact %s: %v", e.Artifact, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func loadErr(name string, err error) error {
	return &LoadError{Artifact: name, Err: err}
}
