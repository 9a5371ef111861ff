package questions

import "strings"

var (
	yesWords = map[string]struct{}{
		"sim": {}, "s": {}, "yes": {}, "y": {}, "true": {}, "verdadeiro": {},
	}
	noWords = map[string]struct{}{
		"nao": {}, "não": {}, "n": {}, "no": {}, "false": {}, "falso": {},
	}
)

// Normalize trims and lowercases an answer for branch matching.
func Normalize(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// ChooseNext picks the id following node for answer.
//
// With branches and a non-nil answer: an exact branch key wins, then yes/no
// synonyms map onto the "sim" and "nao"/"não" branches, and anything else
// falls back to Next. A nil answer or a node without branches follows Next.
// An empty result means the interview has no further step.
func ChooseNext(node Node, answer *string) string {
	if len(node.Branches) == 0 || answer == nil {
		return node.Next
	}
	a := Normalize(*answer)
	if target, ok := node.Branches[a]; ok {
		return target
	}
	if _, ok := yesWords[a]; ok {
		if target, ok := node.Branches["sim"]; ok {
			return target
		}
	}
	if _, ok := noWords[a]; ok {
		plain, hasPlain := node.Branches["nao"]
		accented, hasAccented := node.Branches["não"]
		if hasPlain || hasAccented {
			if plain != "" {
				return plain
			}
			return accented
		}
	}
	return node.Next
}
