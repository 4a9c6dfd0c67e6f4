package main

import (
	"fmt"

	tele "gopkg.in/telebot.v3"
)

// Callback endpoints. The keyboards below stamp these uniques on their
// buttons; bot.go registers one handler per unique.
var (
	btnShowDates   = tele.Btn{Unique: "show_dates"}
	btnShowOrders  = tele.Btn{Unique: "show_orders"}
	btnPickDate    = tele.Btn{Unique: "pick_date"}    // data: date
	btnPickSession = tele.Btn{Unique: "pick_session"} // data: date|time
	btnPickPerson  = tele.Btn{Unique: "pick_person"}  // data: idx|date|time
	btnCancelBuy   = tele.Btn{Unique: "cancel_buy"}   // data: date|time
)

func startKeyboard() *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	m.Inline(
		m.Row(m.Data("Посмотреть сеансы", btnShowDates.Unique)),
		m.Row(m.Data("Мои заказы", btnShowOrders.Unique)),
	)
	return m
}

func datesKeyboard(dates []DateInfo) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(dates))
	for _, d := range dates {
		label := fmt.Sprintf("%s (%s) — %d сеанс.", d.Date, ShortDayOfWeek(d.DayOfWeek), len(d.Sessions))
		rows = append(rows, m.Row(m.Data(label, btnPickDate.Unique, d.Date)))
	}
	m.Inline(rows...)
	return m
}

func sessionsKeyboard(sessions []ScheduleSession, date string) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	btns := make([]tele.Btn, 0, len(sessions))
	for _, s := range sessions {
		btns = append(btns, m.Data(s.TimeRange, btnPickSession.Unique, s.Date, s.TimeRange))
	}
	rows := chunkRows(m, btns, 2)
	rows = append(rows, m.Row(m.Data("<< Назад к датам", btnShowDates.Unique)))
	m.Inline(rows...)
	return m
}

func personsKeyboard(persons []Person, date, timeRange string) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	btns := make([]tele.Btn, 0, len(persons)+1)
	for i, p := range persons {
		btns = append(btns, m.Data(p.Name, btnPickPerson.Unique, fmt.Sprint(i), date, timeRange))
	}
	btns = append(btns, m.Data("Все сразу", btnPickPerson.Unique, "all", date, timeRange))
	rows := chunkRows(m, btns, 2)
	rows = append(rows, m.Row(m.Data("<< Назад", btnPickDate.Unique, date)))
	m.Inline(rows...)
	return m
}

func buyLinkKeyboard(url, date, timeRange string) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	m.Inline(
		m.Row(m.URL("Открыть страницу покупки", url)),
		m.Row(m.Data("Следующий билет", btnPickSession.Unique, date, timeRange)),
		m.Row(m.Data("<< В начало", btnShowDates.Unique)),
	)
	return m
}

func paymentLinkKeyboard(url, date, timeRange string) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	m.Inline(
		m.Row(m.URL("Открыть для оплаты", url)),
		m.Row(m.Data("Следующий билет", btnPickSession.Unique, date, timeRange)),
		m.Row(m.Data("<< В начало", btnShowDates.Unique)),
	)
	return m
}

func nextTicketKeyboard(date, timeRange string) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	m.Inline(
		m.Row(m.Data("Следующий билет", btnPickSession.Unique, date, timeRange)),
		m.Row(m.Data("<< В начало", btnShowDates.Unique)),
	)
	return m
}

func cancelKeyboard(date, timeRange string) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	m.Inline(m.Row(m.Data("Отмена", btnCancelBuy.Unique, date, timeRange)))
	return m
}

func retryKeyboard(date, timeRange string) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	m.Inline(
		m.Row(m.Data("Попробовать снова", btnPickSession.Unique, date, timeRange)),
		m.Row(m.Data("<< В начало", btnShowDates.Unique)),
	)
	return m
}

func chunkRows(m *tele.ReplyMarkup, btns []tele.Btn, perRow int) []tele.Row {
	var rows []tele.Row
	for i := 0; i < len(btns); i += perRow {
		end := i + perRow
		if end > len(btns) {
			end = len(btns)
		}
		rows = append(rows, m.Row(btns[i:end]...))
	}
	return rows
}
