package bot

// Command keywords and user-facing message text. Keywords match exactly;
// anything else is interpreted by the current conversation state or handed
// to the chat model.
const (
	cmdAddCard    = "新增繳費提醒"
	cmdListCards  = "列出繳費清單"
	cmdDeleteCard = "刪除繳費提醒"
	cmdMarkPaid   = "已繳費"
	cmdHelp       = "說明"

	msgAskName         = "請輸入要新增的項目名稱:"
	msgAskDayFmt       = "好的，新增項目為「%s」。接下來請輸入繳費截止日 (例如: 15)"
	msgBadDay          = "請輸入正確的日期格式 (例如: 5)"
	msgAddedFmt        = "已新增「%s」的繳費提醒，下次繳費截止日: %s"
	msgAskDeleteIndex  = "請輸入要刪除的清單項目編號"
	msgAskPaidIndex    = "請輸入已繳費的清單項目編號"
	msgBadIndex        = "請輸入有效的清單項目編號"
	msgDeletedFmt      = "已刪除「%s」的繳費提醒"
	msgPaidFmt         = "好的，已經繳完這個月的%s費用，下次繳費截止日: %s"
	msgOperationFailed = "發生錯誤，操作未成功"
	msgEmptyList       = "清單是空的"
	msgNeedText        = "請輸入訊息內容"
	msgChatUnavailable = "目前無法取得回應，請稍後再試。"

	sweepHeaderFmt = "目前有%d個項目需要繳費:"
	sweepLineFmt   = "\n%s - %s (%d天)"
	sweepFooter    = "\n若已經繳費，請輸入「已繳費」，本月將不再提醒"
)

const msgHelp = `- 輸入「` + cmdAddCard + `」可以新增繳費提醒
- 輸入「` + cmdListCards + `」可以列出目前已新增的繳費提醒
- 輸入「` + cmdDeleteCard + `」可以刪除已經不需要的繳費提醒
- 輸入「` + cmdMarkPaid + `」告訴我您已經繳費的項目，會在下個月再度提醒`
