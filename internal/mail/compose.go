// Package mail composes and sends booking notifications.  Delivery failures
// are recorded on the booking's mail_status and never fail a user request.
package mail

import (
	"fmt"

	"github.com/fengtai-hotel/shuttle-reservation/internal/model"
)

// Mail kinds, matching the operation that triggered the message.
const (
	KindBook   = "book"
	KindModify = "modify"
	KindCancel = "cancel"
)

type template struct {
	subject string // fmt: booking id
	body    string // fmt: name, trip display, pickup, dropoff, pax, booking id
}

// Subject and plain-text body per language and kind.  The body keeps to
// plain text; the ticket PNG travels as an attachment when present.
var templates = map[string]map[string]template{
	"zh": {
		KindBook:   {"接駁車預約確認 [%s]", "%s 您好，\n\n您的接駁車預約已確認。\n班次：%s\n上車：%s\n下車：%s\n人數：%d\n預約編號:%s\n\n乘車時請出示 QR code。"},
		KindModify: {"接駁車預約變更 [%s]", "%s 您好，\n\n您的接駁車預約已變更。\n班次：%s\n上車：%s\n下車：%s\n人數：%d\n預約編號:%s"},
		KindCancel: {"接駁車預約取消 [%s]", "%s 您好，\n\n您的接駁車預約已取消。\n班次：%s\n上車：%s\n下車：%s\n人數：%d\n預約編號:%s"},
	},
	"en": {
		KindBook:   {"Shuttle reservation confirmed [%s]", "Dear %s,\n\nYour shuttle reservation is confirmed.\nTrip: %s\nPickup: %s\nDropoff: %s\nPassengers: %d\nBooking ID: %s\n\nPlease show your QR code when boarding."},
		KindModify: {"Shuttle reservation updated [%s]", "Dear %s,\n\nYour shuttle reservation has been updated.\nTrip: %s\nPickup: %s\nDropoff: %s\nPassengers: %d\nBooking ID: %s"},
		KindCancel: {"Shuttle reservation cancelled [%s]", "Dear %s,\n\nYour shuttle reservation has been cancelled.\nTrip: %s\nPickup: %s\nDropoff: %s\nPassengers: %d\nBooking ID: %s"},
	},
	"ja": {
		KindBook:   {"シャトルバスご予約確認 [%s]", "%s 様\n\nシャトルバスのご予約を承りました。\n便：%s\n乗車：%s\n降車：%s\n人数：%d\n予約番号:%s\n\nご乗車の際はQRコードをご提示ください。"},
		KindModify: {"シャトルバスご予約変更 [%s]", "%s 様\n\nシャトルバスのご予約を変更しました。\n便：%s\n乗車：%s\n降車：%s\n人数：%d\n予約番号:%s"},
		KindCancel: {"シャトルバスご予約取消 [%s]", "%s 様\n\nシャトルバスのご予約を取り消しました。\n便：%s\n乗車：%s\n降車：%s\n人数：%d\n予約番号:%s"},
	},
	"ko": {
		KindBook:   {"셔틀버스 예약 확정 [%s]", "%s 님,\n\n셔틀버스 예약이 확정되었습니다.\n운행편: %s\n승차: %s\n하차: %s\n인원: %d\n예약번호:%s\n\n탑승 시 QR 코드를 제시해 주세요."},
		KindModify: {"셔틀버스 예약 변경 [%s]", "%s 님,\n\n셔틀버스 예약이 변경되었습니다.\n운행편: %s\n승차: %s\n하차: %s\n인원: %d\n예약번호:%s"},
		KindCancel: {"셔틀버스 예약 취소 [%s]", "%s 님,\n\n셔틀버스 예약이 취소되었습니다.\n운행편: %s\n승차: %s\n하차: %s\n인원: %d\n예약번호:%s"},
	},
}

// Compose renders the subject and body for one booking.  Unknown languages
// fall back to English.
func Compose(kind, lang string, b model.Booking) (subject, body string) {
	byKind, ok := templates[lang]
	if !ok {
		byKind = templates["en"]
	}
	tpl, ok := byKind[kind]
	if !ok {
		tpl = byKind[KindBook]
	}
	subject = fmt.Sprintf(tpl.subject, b.BookingID)
	body = fmt.Sprintf(tpl.body, b.Name, b.TripDisplay, b.Pickup, b.Dropoff, b.EffectivePax(), b.BookingID)
	return subject, body
}
