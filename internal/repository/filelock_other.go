//go:build !unix

package repository

import (
	"context"
	"errors"
)

func lockFile(context.Context, string) (func(), error) {
	return nil, errors.New("file baseline store requires flock support")
}
