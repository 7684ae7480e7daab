package services

import (
	"regexp"
	"strings"
)

// GroupPrefix はmonday.comがグループ名の先頭に付けることがある記号です
const GroupPrefix = "> "

var parenthesized = regexp.MustCompile(`\([^)]*\)`)

// titleRule は表記揺れのある既知グループ名を同一視するルールです
type titleRule struct {
	name  string
	match func(requested, candidate string) bool
}

// knownTitleRules は既知の表記揺れだけを扱う互換ルール表です
// 汎用のあいまい一致にはしないこと
var knownTitleRules = []titleRule{
	{
		name: "npop",
		match: func(requested, candidate string) bool {
			if !bothContain(requested, candidate, "NPOP") {
				return false
			}
			sameLane := bothContain(requested, candidate, "LA3") || bothContain(requested, candidate, "LA6")
			sameAccount := bothContain(requested, candidate, "SOBEYSMIF") || bothContain(requested, candidate, "MIFLAOPS")
			return sameLane && sameAccount
		},
	},
	{
		name: "new-tender",
		match: func(requested, candidate string) bool {
			if !bothContain(requested, candidate, "New Tender") {
				return false
			}
			for _, region := range []string{"Atlantic", "West", "Quebec", "Ontario"} {
				if bothContain(requested, candidate, region) {
					return true
				}
			}
			return false
		},
	},
	{
		name: "pepsi-load-tender",
		match: func(requested, candidate string) bool {
			return bothContain(requested, candidate, "Pepsi") && bothContain(requested, candidate, "Load Tender")
		},
	},
}

// MatchesGroupTitle は要求されたグループ名とリモートのグループ名が同じグループを指すかを判定します
// 判定順: 完全一致 → "> " 除去後の完全一致 → 括弧部分を除いた大文字小文字無視の一致 → 既知ルール
func MatchesGroupTitle(requested, candidate string) bool {
	if requested == candidate {
		return true
	}

	stripped := StripGroupPrefix(candidate)
	if requested == stripped {
		return true
	}

	if strings.EqualFold(NormalizeGroupTitle(requested), NormalizeGroupTitle(stripped)) {
		return true
	}

	return matchKnownRule(requested, stripped) != ""
}

// StripGroupPrefix は先頭の "> " を取り除きます。何度適用しても結果は変わりません
func StripGroupPrefix(title string) string {
	for strings.HasPrefix(title, GroupPrefix) {
		title = strings.TrimSpace(title[len(GroupPrefix):])
	}
	return title
}

// NormalizeGroupTitle は "(...)" をすべて取り除き、前後の空白を削ります
func NormalizeGroupTitle(title string) string {
	return strings.TrimSpace(parenthesized.ReplaceAllString(title, ""))
}

// matchKnownRule は一致した既知ルールの名前を返します。一致しなければ空文字です
func matchKnownRule(requested, candidate string) string {
	for _, rule := range knownTitleRules {
		if rule.match(requested, candidate) {
			return rule.name
		}
	}
	return ""
}

func bothContain(a, b, keyword string) bool {
	return strings.Contains(a, keyword) && strings.Contains(b, keyword)
}
