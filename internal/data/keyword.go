package data

import (
	"fmt"
	"strings"
)

// Keyword is an interned name. Depending on its spelling it plays one of
// three roles in a query:
//
//   - a free variable, when it starts with the '?' or '_' sigil;
//   - a synthetic binding, when it starts with the reserved '*' prefix
//     (generated internally, never accepted from user input);
//   - an attribute or literal name otherwise.
//
// A fixed set of reserved words may not appear as unquoted literal strings
// in a query; they must be wrapped in an explicit const marker so that a
// typo'd variable cannot silently become a string constant.
type Keyword string

// syntheticPrefix marks bindings generated by the compiler. User keywords
// can never start with it: it is not a legal attribute or variable sigil.
const syntheticPrefix = "*"

// reservedWords are spellings that collide with structural parts of the
// wire format. Used as bare strings they are almost certainly mistakes.
var reservedWords = map[Keyword]struct{}{
	"const":  {},
	"null":   {},
	"true":   {},
	"false":  {},
	"unique": {},
	"ref":    {},
}

// IsVariable reports whether the keyword is spelled as a free variable.
func (k Keyword) IsVariable() bool {
	return strings.HasPrefix(string(k), "?") || strings.HasPrefix(string(k), "_")
}

// IsSynthetic reports whether the keyword lives in the reserved internal
// namespace and must be eliminated from any final schema.
func (k Keyword) IsSynthetic() bool {
	return strings.HasPrefix(string(k), syntheticPrefix)
}

// IsReserved reports whether the keyword is a reserved word that must be
// quoted to be used as a literal string value.
func (k Keyword) IsReserved() bool {
	_, ok := reservedWords[k]
	return ok
}

func (k Keyword) String() string {
	return string(k)
}

// KeywordAllocator hands out unique synthetic keywords within one compile
// call. It is plain local state passed through the compile pass, never a
// global: two concurrent compilations each own their own allocator, and
// the names they generate only need to be unique within their own plan.
type KeywordAllocator struct {
	serial int
}

// Next returns a fresh synthetic keyword.
func (a *KeywordAllocator) Next() Keyword {
	kw := Keyword(fmt.Sprintf("%s%d", syntheticPrefix, a.serial))
	a.serial++
	return kw
}
