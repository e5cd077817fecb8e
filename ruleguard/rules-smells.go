package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Two consecutive guard-ifs returning the same value are mergeable.
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	m.Match(`for $*_ { for $*_ { $*_ } }`).
		Report(`nested for-loop; consider extracting inner loop logic or reducing algorithmic complexity`)
}

func secrets(m dsl.Matcher) {
	// Credential material must never reach a log line.
	m.Match(`zap.String($name, $c.Secret())`).
		Report(`credential secret passed to a log field`)

	m.Match(`fmt.Sprintf($*_, $c.Secret(), $*_)`).
		Report(`credential secret formatted into a string; keep secrets out of messages`)
}
