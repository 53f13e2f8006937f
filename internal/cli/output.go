package cli

import (
	"io"

	"github.com/bytedance/sonic"
)

func printJSON(w io.Writer, v any) error {
	enc := sonic.ConfigStd.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
