// Package all imports all available producers for side-effect registration.
//
// Import this package from your main to ensure all producers are registered:
//
//	import _ "github.com/Vodeneev/linecompare/internal/parser/parsers/all"
package all

import (
	_ "github.com/Vodeneev/linecompare/internal/parser/parsers/betmgm"
	_ "github.com/Vodeneev/linecompare/internal/parser/parsers/draftkings"
	_ "github.com/Vodeneev/linecompare/internal/parser/parsers/fanduel"
	_ "github.com/Vodeneev/linecompare/internal/parser/parsers/fixture"
)
