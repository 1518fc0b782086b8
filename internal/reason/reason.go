// Package reason translates marketplace refund reason codes into the Chinese
// captions used in the merged report.
package reason

import (
	"sort"
	"strings"
)

// Table is a static code → caption mapping with its own key normalization.
type Table struct {
	name    string
	entries map[string]string
	key     func(string) string
}

func (t *Table) Name() string { return t.name }

func (t *Table) Len() int { return len(t.entries) }

// Lookup translates a stringified code. A miss is not an error; callers keep
// the reason empty.
func (t *Table) Lookup(code string) (string, bool) {
	v, ok := t.entries[t.key(code)]
	return v, ok
}

// Codes returns the table keys in sorted order.
func (t *Table) Codes() []string {
	out := make([]string, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func upperKey(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

func rawKey(code string) string { return code }

// BuyerReturn covers Amazon buyer return codes and their caption variants.
var BuyerReturn = &Table{
	name: "buyer_return",
	key:  upperKey,
	entries: map[string]string{
		"UNWANTED_ITEM":                          "不想要的商品",
		"DEFECTIVE":                              "商品存在瑕疵",
		"NOT_AS_DESCRIBED":                       "和网站上的描述不一致",
		"SWITCHEROO":                             "亚马逊发了错误的产品",
		"MISSED_ESTIMATED_DELIVERY":              "超过预期时间未交付",
		"MISSING_PARTS":                          "配送中商品或配件丢失",
		"FOUND_BETTER_PRICE":                     "发现更优惠的价格",
		"DAMAGED_BY_FC":                          "商品运送到时存在残损或瑕疵",
		"QUALITY_UNACCEPTABLE":                   "商品性能或质量未达预期",
		"ORDERED_WRONG_ITEM":                     "买错货",
		"UNDELIVERABLE_REFUSED":                  "无法配送_已拒收",
		"DAMAGED_BY_CARRIER":                     "商品运送到时存在残损或瑕疵",
		"UNAUTHORIZED_PURCHASE":                  "未经授权购买：例如欺诈",
		"NEVER_ARRIVED":                          "未配送",
		"UNDELIVERABLE_UNKNOWN":                  "无法配送_未知原因",
		"NO_REASON_GIVEN":                        "没有理由",
		"EXTRA_ITEM":                             "货件中包含其他商品",
		"NOT_COMPATIBLE":                         "商品与当前系统不兼容",
		"APPAREL_STYLE":                          "不喜欢产品外观风格/款式",
		"UNDELIVERABLE_INSUFFICIENT_ADDRESS":     "无法配送_地址无效",
		"APPAREL_TOO_SMALL":                      "产品外观太小",
		"APPAREL_TOO_LARGE":                      "产品外观太大",
		"MISORDERED":                             "订购错误的款式/尺寸/颜色",
		"UNDELIVERABLE_CARRIER_MISS_SORTED":      "无法交付_承运人丢失",
		"UNDELIVERABLE_FAILED_DELIVERY_ATTEMPTS": "无法配送_尝试配送失败",
		"UNDELIVERABLE_MISSING_LABEL":            "无法交付_丢失标签",
		"UNDELIVERABLE_UNCLAIMED":                "无法配送_无人认领",

		"PERFORMANCE/QUALITY NOT UP TO EXPECTATIONS": "商品性能或质量未达预期",
		"DAMAGED/DEFECTIVE ON ARRIVAL":               "商品运送到时存在残损或瑕疵",
		"MISSING ITEMS OR ACCESSORIES":               "配送中商品或配件丢失",
		"UNWANTED ITEM":                              "不想要的商品",
		"WRONG_SIZE":                                 "尺寸错误",
		"MISSED ESTIMATED DELIVERY":                  "超过预期时间未交付",
		"ORDERED WRONG ITEM":                         "买错货",
		"NO REASON GIVEN":                            "没有理由",
		"UNDELIVERABLE UNKNOWN":                      "无法配送_未知原因",
		"UNDELIVERABLE REFUSED":                      "无法配送_已拒收",
		"UNAUTHORIZED PURCHASE":                      "未经授权购买：例如欺诈",
		"UNDELIVERABLE FAILED DELIVERY ATTEMPTS":     "无法配送_尝试配送失败",
		"WRONG ITEM SHIPPED":                         "亚马逊发了错误的产品",
		"FOUND BETTER PRICE ELSEWHERE":               "发现更优惠的价格",
		"NOT AS DESCRIBED ON WEBSITE":                "和网站上的描述不一致",
		"DAMAGED/DEFECTIVE AFTER ARRIVAL":            "商品运送到时存在残损或瑕疵",
		"NOT COMPATIBLE WITH EXISTING SYSTEM":        "商品与当前系统不兼容",
		"EXTRA ITEM INCLUDED IN SHIPMENT":            "货件中包含其他商品",
	},
}

// Exchange covers Amazon replacement reason codes "0".."12". Keys are matched
// verbatim, so "1.0" or " 1" miss.
var Exchange = &Table{
	name: "exchange",
	key:  rawKey,
	entries: map[string]string{
		"0":  "其他",
		"1":  "丢失",
		"2":  "存在缺陷",
		"3":  "配送过程中残损",
		"4":  "商品配送错误",
		"5":  "商品在配送过程中丢失",
		"6":  "发货人丢失商品",
		"7":  "目录错误/买错商品",
		"8":  "配送到错误的地址",
		"9":  "配送问题（地址正确）",
		"10": "DC/FC处理中心残损",
		"11": "未收到商品",
		"12": "政策例外/买家错误",
	},
}

// ByName resolves a table referenced from source rules.
func ByName(name string) (*Table, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BuyerReturn.name:
		return BuyerReturn, true
	case Exchange.name:
		return Exchange, true
	}
	return nil, false
}
