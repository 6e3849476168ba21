package categories

import "chitieu/internal/core"

var defaultSet = []core.Category{
	{ID: "1", Name: "Mua sắm", Icon: "🛒"},
	{ID: "2", Name: "Đồ ăn", Icon: "🍔"},
	{ID: "3", Name: "Điện thoại", Icon: "📱"},
	{ID: "4", Name: "Giải trí", Icon: "🎤"},
	{ID: "5", Name: "Giáo dục", Icon: "📖"},
	{ID: "6", Name: "Sắc đẹp", Icon: "💅"},
	{ID: "7", Name: "Thể thao", Icon: "🏊"},
	{ID: "8", Name: "Xã hội", Icon: "👥"},
	{ID: "9", Name: "Vận tải", Icon: "🚌"},
	{ID: "10", Name: "Quần áo", Icon: "👕"},
	{ID: "11", Name: "Xe hơi", Icon: "🚗"},
	{ID: "12", Name: "Rượu", Icon: "🍷"},
	{ID: "13", Name: "Thuốc lá", Icon: "🚭"},
	{ID: "14", Name: "Thiết bị ĐT", Icon: "🎧"},
	{ID: "15", Name: "Du lịch", Icon: "✈️"},
	{ID: "16", Name: "Sức khỏe", Icon: "❤️‍🩹"},
	{ID: "17", Name: "Thú cưng", Icon: "🐾"},
	{ID: "18", Name: "Sửa chữa", Icon: "🛠️"},
	{ID: "19", Name: "Nhà ở", Icon: "🏠"},
	{ID: "20", Name: "Nhà", Icon: "🏡"},
	{ID: "21", Name: "Quà tặng", Icon: "🎁"},
	{ID: "22", Name: "Quyên góp", Icon: "💖"},
	{ID: "23", Name: "Vé số", Icon: "🎟️"},
	{ID: "24", Name: "Đồ ăn nhẹ", Icon: "🍰"},
}

// Defaults returns the built-in expense categories installed by the seed
// command. The returned slice is a copy.
func Defaults() []core.Category {
	out := make([]core.Category, len(defaultSet))
	for i, c := range defaultSet {
		c.Type = core.Expense
		c.Tier = core.DefaultTier
		out[i] = c
	}
	return out
}
