package models

// ContractSpec 描述一个期货品种的静态参数
type ContractSpec struct {
	Multiplier float64 `json:"multiplier"`  // 合约乘数
	MarginRate float64 `json:"margin_rate"` // 保证金率
	TickSize   float64 `json:"tick_size"`   // 最小变动价位
}

// DefaultContracts 内置了常用国内期货品种的合约参数，可被配置文件覆盖。
var DefaultContracts = map[string]ContractSpec{
	"RB": {Multiplier: 10, MarginRate: 0.10, TickSize: 1},    // 螺纹钢
	"HC": {Multiplier: 10, MarginRate: 0.10, TickSize: 1},    // 热卷
	"I":  {Multiplier: 100, MarginRate: 0.12, TickSize: 0.5}, // 铁矿石
	"J":  {Multiplier: 100, MarginRate: 0.15, TickSize: 0.5}, // 焦炭
	"M":  {Multiplier: 10, MarginRate: 0.08, TickSize: 1},    // 豆粕
	"TA": {Multiplier: 5, MarginRate: 0.08, TickSize: 2},     // PTA
	"CU": {Multiplier: 5, MarginRate: 0.10, TickSize: 10},    // 沪铜
	"AU": {Multiplier: 1000, MarginRate: 0.08, TickSize: 0.02}, // 沪金
}

// LookupContract 按品种代码查找合约参数，未登记的品种返回 false。
func LookupContract(table map[string]ContractSpec, symbol string) (ContractSpec, bool) {
	if table == nil {
		table = DefaultContracts
	}
	spec, ok := table[symbol]
	return spec, ok
}
