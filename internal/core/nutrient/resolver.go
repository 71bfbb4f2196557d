package nutrient

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arpheno/mealprep/internal/core/catalog"
	"github.com/arpheno/mealprep/internal/pkg/common"

	"go.uber.org/zap"
)

var (
	// ErrUnresolved 外部名稱對不到任何 canonical nutrient
	ErrUnresolved = errors.New("nutrient name not resolved")
	// ErrAmbiguous 名稱同時對到多個 canonical nutrient（別名需要人工整理）
	ErrAmbiguous = errors.New("nutrient name is ambiguous")
)

// Resolver 把外部來源的營養素名稱對應到 canonical nutrient。
// cache 以一次匯入為生命週期建立一次，避免逐列查資料庫；
// 同一個對不到的名稱在整個 run 只記一次 log。
type Resolver struct {
	entries []resolverEntry
	byName  map[string][]*resolverEntry
	byAlias map[string][]*resolverEntry
	warned  map[string]struct{}
}

type resolverEntry struct {
	nutrient *catalog.Nutrient
	variants []string // 名稱的展開候選（小寫）
}

// NewResolver 以型錄快照建立 resolver
func NewResolver(nutrients []catalog.Nutrient) *Resolver {
	r := &Resolver{
		byName:  make(map[string][]*resolverEntry),
		byAlias: make(map[string][]*resolverEntry),
		warned:  make(map[string]struct{}),
	}
	r.entries = make([]resolverEntry, len(nutrients))
	for i := range nutrients {
		n := &nutrients[i]
		entry := &r.entries[i]
		entry.nutrient = n

		seen := make(map[string]struct{})
		for _, v := range Variants(n.Name) {
			v = strings.ToLower(v)
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			entry.variants = append(entry.variants, v)
			r.byName[v] = appendEntry(r.byName[v], entry)
		}
		for _, alias := range n.Aliases {
			key := strings.ToLower(strings.TrimSpace(alias.Name))
			if key == "" {
				continue
			}
			r.byAlias[key] = appendEntry(r.byAlias[key], entry)
		}
	}
	return r
}

func appendEntry(list []*resolverEntry, e *resolverEntry) []*resolverEntry {
	for _, existing := range list {
		if existing == e {
			return list
		}
	}
	return append(list, e)
}

// Resolve 比對一個外部名稱。比對順序：
// 1. 輸入的展開候選 vs canonical 名稱（精確、大小寫不敏感）
// 2. 輸入的展開候選 vs 別名
// 3. 前綴比對（雙向，短字串排除）
// 對到多個營養素時回傳 ErrAmbiguous；完全對不到回傳 ErrUnresolved。
func (r *Resolver) Resolve(name string) (*catalog.Nutrient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrUnresolved
	}
	candidates := Variants(name)

	// 精確比對：名稱優先於別名
	for _, index := range []map[string][]*resolverEntry{r.byName, r.byAlias} {
		for _, cand := range candidates {
			matches := index[strings.ToLower(cand)]
			switch len(matches) {
			case 0:
				continue
			case 1:
				return matches[0].nutrient, nil
			default:
				r.warnOnce(name, "營養素名稱有歧義，略過",
					zap.Strings("matches", entryNames(matches)))
				return nil, fmt.Errorf("%w: %q", ErrAmbiguous, name)
			}
		}
	}

	// 前綴比對：較寬鬆，僅在精確比對全數落空後嘗試
	for _, cand := range candidates {
		lc := strings.ToLower(cand)
		if tooShortForPrefix(lc) {
			continue
		}
		for i := range r.entries {
			for _, v := range r.entries[i].variants {
				if tooShortForPrefix(v) {
					continue
				}
				if strings.HasPrefix(lc, v) || strings.HasPrefix(v, lc) {
					return r.entries[i].nutrient, nil
				}
			}
		}
	}

	r.warnOnce(name, "營養素名稱對不到型錄，略過")
	return nil, fmt.Errorf("%w: %q", ErrUnresolved, name)
}

// tooShortForPrefix 避免 "b6" 這類短字串造成誤配
func tooShortForPrefix(s string) bool {
	if len(s) >= 3 {
		return false
	}
	for _, c := range s {
		if !('a' <= c && c <= 'z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}

func (r *Resolver) warnOnce(name, msg string, fields ...zap.Field) {
	if _, ok := r.warned[name]; ok {
		return
	}
	r.warned[name] = struct{}{}
	common.LogWarn(msg, append([]zap.Field{zap.String("name", name)}, fields...)...)
}

func entryNames(entries []*resolverEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.nutrient.Name
	}
	return names
}
