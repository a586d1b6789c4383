package card

import (
	"fmt"

	"github.com/ebfe/scard"
)

// Open establishes a PC/SC context and connects the named reader in
// exclusive share mode, so no other application can interleave APDUs while a
// workflow runs. An empty readerName picks the first reader present.
//
// Forcing T=0 or T=1 avoids "Parameter Incorrect" errors on readers that
// reject the default protocol mask.
func Open(readerName string) (*Session, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, &ConnectionError{Reader: readerName, Err: err}
	}

	readers, err := ctx.ListReaders()
	if err != nil || len(readers) == 0 {
		releaseContext(ctx)
		if err == nil {
			err = fmt.Errorf("no smart card reader found")
		}
		return nil, &ConnectionError{Reader: readerName, Err: err}
	}

	target, err := pickReader(readers, readerName)
	if err != nil {
		releaseContext(ctx)
		return nil, &ConnectionError{Reader: readerName, Err: err}
	}

	scardCard, err := ctx.Connect(target, scard.ShareExclusive, scard.ProtocolT0|scard.ProtocolT1)
	if err != nil {
		releaseContext(ctx)
		return nil, &ConnectionError{Reader: target, Err: err}
	}

	disconnect := func() error {
		discErr := scardCard.Disconnect(scard.LeaveCard)
		if relErr := ctx.Release(); discErr == nil {
			discErr = relErr
		}
		return discErr
	}

	return NewSession(target, scardCard, disconnect), nil
}

func pickReader(readers []string, name string) (string, error) {
	if name == "" {
		return readers[0], nil
	}
	for _, r := range readers {
		if r == name {
			return r, nil
		}
	}
	return "", fmt.Errorf("reader %q not present (available: %v)", name, readers)
}

func releaseContext(ctx *scard.Context) {
	// Cleanup during error handling; nothing useful to do with a failure here.
	_ = ctx.Release()
}
