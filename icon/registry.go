package icon

// Icon identifies a UI symbol in the global registry.
type Icon int

const (
	Progress Icon = iota
	Success
	Fail
	Question
)

// icons maps every registered Icon to its per-variant representations.
var icons = map[Icon]*iconDef{
	Progress: {
		emoji:   "⏳",
		nerd:    "",
		plain:   "...",
		kaomoji: "(￣ー￣)ゞ",
		squares: "◫",
	},
	Success: {
		emoji:   "✅",
		nerd:    "",
		plain:   "[ok]",
		kaomoji: "(￣▽￣)ノ",
		squares: "▣",
	},
	Fail: {
		emoji:   "❌",
		nerd:    "",
		plain:   "[!]",
		kaomoji: "(╥﹏╥)",
		squares: "▨",
	},
	Question: {
		emoji:   "❓",
		nerd:    "",
		plain:   "[?]",
		kaomoji: "(・・ ) ?",
		squares: "◲",
	},
}
