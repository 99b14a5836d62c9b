//go:build tools

package rowbinary

import (
	_ "golang.org/x/tools/cmd/stringer"
)
