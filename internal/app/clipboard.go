package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
)

var clipboardWriteAll = clipboard.WriteAll
var clipboardWriteOSC52 = writeOSC52Clipboard

// copyTextToClipboard tries the system clipboard first and falls back to
// OSC 52 so copying still works over SSH.
func copyTextToClipboard(text string) error {
	err := clipboardWriteAll(text)
	if err == nil {
		return nil
	}
	oscErr := clipboardWriteOSC52(text)
	if oscErr == nil {
		return nil
	}
	return combineClipboardErrors(err, oscErr)
}

func writeOSC52Clipboard(text string) error {
	tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer tty.Close()
	seq := osc52.New(text)
	if _, err := io.WriteString(tty, seq.String()); err != nil {
		return err
	}
	return nil
}

func combineClipboardErrors(system, osc error) error {
	if system == nil {
		return osc
	}
	if osc == nil {
		return system
	}
	return errors.Join(
		fmt.Errorf("system clipboard: %w", system),
		fmt.Errorf("osc52: %w", osc),
	)
}
