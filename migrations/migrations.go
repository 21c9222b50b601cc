// Package migrations holds the ordered list of data migrations the
// automator applies at boot. Append only; never reorder or rename an
// entry that has shipped.
package migrations

import (
	"github.com/defistack/automate/core/migrator"
)

var Migrations = []migrator.Migration{
	{
		Name:     "20250812-110000-normalize-contract-addresses",
		Function: NormalizeContractAddresses,
	},
}
