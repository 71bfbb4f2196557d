package nutrient

import (
	"regexp"
	"strings"
)

var parenPattern = regexp.MustCompile(`\((.*?)\)`)

// Variants 展開營養素名稱的比對候選字串。
// 來源資料的命名不一致（連字號、大小寫、括號註記、"X as Y"、"X, Y"），
// 這裡把值得嘗試的拼法全部列出來，依插入順序去重後回傳。
// 順序有意義：精確比對會依序嘗試，原字串永遠排最前面。
// 空字串或純空白輸入回傳空集合。
func Variants(name string) []string {
	set := newOrderedSet()

	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return nil
	}
	lower := strings.ToLower(name)

	// 原字串與小寫
	set.add(name)
	set.add(lower)

	// 連字號移除 / 改成空格
	addHyphenVariants(set, name)

	// 括號內的內容
	if inner := parenContent(name); inner != "" {
		set.add(inner)
		set.add(strings.ToLower(inner))
		addHyphenVariants(set, inner)
	}

	// 括號前的主體
	if idx := strings.Index(name, "("); idx >= 0 {
		base := strings.TrimSpace(name[:idx])
		set.add(base)
		set.add(strings.ToLower(base))
	}

	// " as " 或 "," 前的主體
	base := strings.TrimSpace(strings.SplitN(strings.SplitN(name, " as ", 2)[0], ",", 2)[0])
	if base != name {
		set.add(base)
		set.add(strings.ToLower(base))
		addHyphenVariants(set, base)
	}

	// "Vitamin B6" -> "Vitamin B-6"（僅在尚未有連字號時）
	if strings.Contains(lower, "vitamin b") && !strings.Contains(lower, "vitamin b-") {
		modified := strings.ReplaceAll(name, "Vitamin B", "Vitamin B-")
		modified = strings.ReplaceAll(modified, "vitamin b", "vitamin b-")
		set.add(modified)
		set.add(strings.ToLower(modified))
	}

	return set.values()
}

func addHyphenVariants(set *orderedSet, s string) {
	noHyphen := strings.ReplaceAll(s, "-", "")
	hyphenAsSpace := strings.ReplaceAll(s, "-", " ")
	set.add(noHyphen)
	set.add(strings.ToLower(noHyphen))
	set.add(hyphenAsSpace)
	set.add(strings.ToLower(hyphenAsSpace))
}

// parenContent 取第一組括號內的文字
func parenContent(s string) string {
	m := parenPattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// orderedSet 保留插入順序的字串集合
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (o *orderedSet) add(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if _, ok := o.seen[s]; ok {
		return
	}
	o.seen[s] = struct{}{}
	o.items = append(o.items, s)
}

func (o *orderedSet) values() []string {
	return o.items
}
