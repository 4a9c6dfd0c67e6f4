package main

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/middleware"
)

type dialogStage int

const (
	stageAwaitCVC dialogStage = iota + 1
	stageAwaitSMS
)

// pendingPurchase is the per-user dialog state between "form filled" and
// the terminal payment outcome: which ticket is being bought and what input
// the bot is waiting for (CVC or SMS code).
type pendingPurchase struct {
	stage     dialogStage
	personIdx int
	date      string
	timeRange string
}

type Bot struct {
	tg        *tele.Bot
	cfg       *Config
	client    *SportVsegdaClient
	purchaser *Purchaser
	store     *OrderStore

	mu       sync.Mutex
	pending  map[int64]*pendingPurchase
	schedule map[string]DateInfo
}

func NewBot(cfg *Config, client *SportVsegdaClient, purchaser *Purchaser, store *OrderStore) (*Bot, error) {
	tg, err := tele.NewBot(tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create telegram bot")
	}

	b := &Bot{
		tg:        tg,
		cfg:       cfg,
		client:    client,
		purchaser: purchaser,
		store:     store,
		pending:   make(map[int64]*pendingPurchase),
		schedule:  make(map[string]DateInfo),
	}
	b.route()
	return b, nil
}

func (b *Bot) Start() {
	log.Info().Msg("bot started")
	b.tg.Start()
}

func (b *Bot) Stop() {
	b.tg.Stop()
}

func (b *Bot) route() {
	b.tg.Use(middleware.AutoRespond())

	b.tg.Handle("/start", func(c tele.Context) error {
		return c.Send(
			"Привет! Я бот для покупки билетов на каток Маяк.\n\nВыберите действие:",
			startKeyboard(),
		)
	})

	b.tg.Handle("/help", func(c tele.Context) error {
		return c.Send(
			"Команды:\n" +
				"/start — главное меню\n" +
				"/sessions — доступные сеансы\n" +
				"/orders — мои заказы\n" +
				"/help — помощь",
		)
	})

	b.tg.Handle("/sessions", func(c tele.Context) error {
		if err := c.Send("Загружаю расписание с сайта..."); err != nil {
			return err
		}
		return b.sendDates(c, false)
	})

	b.tg.Handle("/orders", func(c tele.Context) error {
		return b.sendOrders(c, false)
	})

	b.tg.Handle(&btnShowDates, func(c tele.Context) error {
		b.clearPending(c.Sender().ID)
		if err := c.Edit("Загружаю расписание с сайта..."); err != nil {
			log.Debug().Err(err).Msg("edit failed")
		}
		return b.sendDates(c, true)
	})

	b.tg.Handle(&btnShowOrders, func(c tele.Context) error {
		return b.sendOrders(c, true)
	})

	b.tg.Handle(&btnPickDate, b.onPickDate)
	b.tg.Handle(&btnPickSession, b.onPickSession)
	b.tg.Handle(&btnPickPerson, b.onPickPerson)
	b.tg.Handle(&btnCancelBuy, b.onCancel)

	b.tg.Handle(tele.OnText, b.onText)
}

func (b *Bot) sendDates(c tele.Context, edit bool) error {
	dates, err := b.loadSchedule()
	out := func(text string, markup *tele.ReplyMarkup) error {
		if edit {
			return c.Edit(text, markup)
		}
		return c.Send(text, markup)
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to load schedule")
		return out("Не удалось загрузить расписание. Попробуйте позже.", startKeyboard())
	}
	if len(dates) == 0 {
		return out("Нет доступных сеансов на данный момент.", startKeyboard())
	}
	return out("Каток Маяк — массовое катание\nВыберите дату:", datesKeyboard(dates))
}

func (b *Bot) sendOrders(c tele.Context, edit bool) error {
	out := c.Send
	if edit {
		out = c.Edit
	}

	orders, err := b.store.Orders(c.Sender().ID, 20)
	if err != nil {
		log.Error().Err(err).Msg("failed to read orders")
		return out("Не удалось загрузить заказы.", startKeyboard())
	}
	if len(orders) == 0 {
		return out("У вас пока нет заказов.", startKeyboard())
	}

	lines := make([]string, 0, len(orders))
	for _, o := range orders {
		promo := ""
		if o.Promo != "" {
			promo = fmt.Sprintf(" (промо: %s)", o.Promo)
		}
		lines = append(lines, fmt.Sprintf("- %s %s — %s%s [%s]", o.Date, o.TimeRange, o.PersonName, promo, o.Status))
	}
	return out("Ваши заказы:\n\n"+strings.Join(lines, "\n"), startKeyboard())
}

func (b *Bot) onPickDate(c tele.Context) error {
	date := c.Data()

	b.mu.Lock()
	info, ok := b.schedule[date]
	b.mu.Unlock()

	if !ok || len(info.Sessions) == 0 {
		return c.Edit(fmt.Sprintf("На %s нет сеансов массового катания.", date), startKeyboard())
	}
	return c.Edit(
		fmt.Sprintf("Каток Маяк — %s (%s)\nВыберите сеанс:", date, info.DayOfWeek),
		sessionsKeyboard(info.Sessions, date),
	)
}

func (b *Bot) onPickSession(c tele.Context) error {
	date, timeRange, ok := splitSlot(c.Data())
	if !ok {
		return c.Edit("Некорректный сеанс.", startKeyboard())
	}
	return c.Edit(
		fmt.Sprintf("Сеанс: %s %s\n\nДля кого покупаем билет?", date, timeRange),
		personsKeyboard(b.cfg.Persons, date, timeRange),
	)
}

func (b *Bot) onPickPerson(c tele.Context) error {
	parts := strings.SplitN(c.Data(), "|", 3)
	if len(parts) != 3 {
		return c.Edit("Некорректный выбор.", startKeyboard())
	}
	idxStr, date, timeRange := parts[0], parts[1], parts[2]

	if idxStr == "all" {
		lines := []string{fmt.Sprintf("Сеанс: %s %s\n", date, timeRange)}
		for i, p := range b.cfg.Persons {
			promo := "полная цена"
			if p.Promo != "" {
				promo = "промо " + p.Promo
			}
			lines = append(lines, fmt.Sprintf("  %d. %s — %s", i+1, p.Name, promo))
		}
		lines = append(lines, fmt.Sprintf("\nВсего %d билетов.", len(b.cfg.Persons)))
		lines = append(lines, "Покупаем по одному — выберите первого:")
		return c.Edit(strings.Join(lines, "\n"), personsKeyboard(b.cfg.Persons, date, timeRange))
	}

	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 || idx >= len(b.cfg.Persons) {
		return c.Edit("Некорректный выбор.", startKeyboard())
	}
	person := b.cfg.Persons[idx]

	if err := c.Edit(fmt.Sprintf(
		"Сеанс: %s %s\nБилет для: %s\n%s\n\nЗаполняю форму на сайте...",
		date, timeRange, person.Name, promoLine(person),
	)); err != nil {
		return err
	}

	// The form fill holds the chat turn for up to a minute; run it off the
	// poller so other users keep getting served.
	go b.runPrepare(c, idx, person, date, timeRange)
	return nil
}

func (b *Bot) runPrepare(c tele.Context, idx int, person Person, date, timeRange string) {
	userID := c.Sender().ID

	result := b.purchaser.Prepare(
		userID, date, timeRange, person.Promo,
		b.cfg.CustomerName, b.cfg.CustomerPhone, b.cfg.CustomerEmail,
	)

	if !result.Success {
		url := b.purchaser.BuyURL(date, timeRange)
		errText := result.Error
		if errText == "" {
			errText = "Неизвестная ошибка"
		}
		b.edit(c, fmt.Sprintf(
			"Билет для: %s\n%s\n\nНе удалось заполнить форму: %s\nОткройте ссылку и заполните вручную:",
			person.Name, promoLine(person), errText,
		), buyLinkKeyboard(url, date, timeRange))
		b.store.SaveOrder(userID, date, timeRange, person.Name, person.Promo, "error")
		return
	}

	total := result.TotalAmount
	if total == "" {
		total = "не удалось определить"
	}

	b.edit(c, fmt.Sprintf(
		"Билет для: %s\nСеанс: %s %s\n%s\nСумма: %s\nКарта: %s\n\n"+
			"Для подтверждения покупки введите CVC код карты.\nДля отмены нажмите кнопку ниже.",
		person.Name, date, timeRange, promoLine(person), total, maskCard(b.cfg.CardNumber),
	), cancelKeyboard(date, timeRange))

	b.setPending(userID, &pendingPurchase{
		stage:     stageAwaitCVC,
		personIdx: idx,
		date:      date,
		timeRange: timeRange,
	})
}

func (b *Bot) onText(c tele.Context) error {
	userID := c.Sender().ID
	p := b.getPending(userID)
	if p == nil {
		return nil
	}

	switch p.stage {
	case stageAwaitCVC:
		cvc := strings.TrimSpace(c.Text())
		if len(cvc) != 3 || !isDigits(cvc) {
			return c.Send("CVC должен быть 3 цифры. Попробуйте ещё раз, или нажмите Отмена.", cancelKeyboard(p.date, p.timeRange))
		}
		// Drop the pending state before the long call so a stray second
		// message cannot start a second payment attempt.
		b.clearPending(userID)
		if err := c.Send("Оплачиваю..."); err != nil {
			return err
		}
		go b.runPayment(c, p, cvc)
		return nil

	case stageAwaitSMS:
		code := strings.TrimSpace(c.Text())
		if len(code) < 3 || len(code) > 8 || !isDigits(code) {
			return c.Send("Код должен состоять из цифр. Попробуйте ещё раз, или нажмите Отмена.", cancelKeyboard(p.date, p.timeRange))
		}
		b.clearPending(userID)
		if err := c.Send("Проверяю код..."); err != nil {
			return err
		}
		go b.runCode(c, p, code)
		return nil
	}
	return nil
}

func (b *Bot) runPayment(c tele.Context, p *pendingPurchase, cvc string) {
	userID := c.Sender().ID
	person := b.cfg.Persons[p.personIdx]

	result := b.purchaser.SubmitAndPay(userID, b.cfg.CardNumber, b.cfg.CardExpiry, cvc)
	b.renderPaymentResult(c, p, person, result, "Банк запрашивает код из СМС. Введите код:")
}

func (b *Bot) runCode(c tele.Context, p *pendingPurchase, code string) {
	userID := c.Sender().ID
	person := b.cfg.Persons[p.personIdx]

	result := b.purchaser.SubmitCode(userID, code)
	b.renderPaymentResult(c, p, person, result, "Неверный код. Введите код ещё раз:")
}

// renderPaymentResult turns a phase outcome into a chat message and an
// order record. needsSMSPrompt differs between the two phases: a fresh
// challenge versus a wrong-code retry.
func (b *Bot) renderPaymentResult(c tele.Context, p *pendingPurchase, person Person, result PurchaseResult, needsSMSPrompt string) {
	userID := c.Sender().ID

	switch {
	case result.Success:
		total := result.TotalAmount
		if total == "" {
			total = "—"
		}
		b.send(c, fmt.Sprintf(
			"Оплата прошла успешно!\n\nБилет: %s\nСеанс: %s %s\nСумма: %s",
			person.Name, p.date, p.timeRange, total,
		), nextTicketKeyboard(p.date, p.timeRange))
		b.store.SaveOrder(userID, p.date, p.timeRange, person.Name, person.Promo, "paid")

	case result.NeedsSMS:
		b.setPending(userID, &pendingPurchase{
			stage:     stageAwaitSMS,
			personIdx: p.personIdx,
			date:      p.date,
			timeRange: p.timeRange,
		})
		b.send(c, needsSMSPrompt, cancelKeyboard(p.date, p.timeRange))

	case result.PaymentURL != "":
		errText := result.Error
		if errText != "" {
			errText += "\n\n"
		}
		b.send(c, fmt.Sprintf(
			"%sБилет: %s\nСеанс: %s %s\nОткройте ссылку для завершения оплаты:",
			errText, person.Name, p.date, p.timeRange,
		), paymentLinkKeyboard(result.PaymentURL, p.date, p.timeRange))
		b.store.SaveOrder(userID, p.date, p.timeRange, person.Name, person.Promo, "payment_link")

	default:
		errText := result.Error
		if errText == "" {
			errText = "Неизвестная ошибка"
		}
		b.send(c, "Ошибка оплаты: "+errText, retryKeyboard(p.date, p.timeRange))
		b.store.SaveOrder(userID, p.date, p.timeRange, person.Name, person.Promo, "error")
	}
}

func (b *Bot) onCancel(c tele.Context) error {
	userID := c.Sender().ID
	b.clearPending(userID)
	b.purchaser.Cancel(userID)

	if date, timeRange, ok := splitSlot(c.Data()); ok {
		return c.Edit("Покупка отменена.", personsKeyboard(b.cfg.Persons, date, timeRange))
	}
	return c.Edit("Покупка отменена.", startKeyboard())
}

func (b *Bot) loadSchedule() ([]DateInfo, error) {
	dates, err := b.client.GetSchedule()
	if err != nil {
		return nil, err
	}
	for i := range dates {
		SortSessionsByTime(dates[i].Sessions)
	}

	b.mu.Lock()
	b.schedule = make(map[string]DateInfo, len(dates))
	for _, d := range dates {
		b.schedule[d.Date] = d
	}
	b.mu.Unlock()

	return dates, nil
}

func (b *Bot) getPending(userID int64) *pendingPurchase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending[userID]
}

func (b *Bot) setPending(userID int64, p *pendingPurchase) {
	b.mu.Lock()
	b.pending[userID] = p
	b.mu.Unlock()
}

func (b *Bot) clearPending(userID int64) {
	b.mu.Lock()
	delete(b.pending, userID)
	b.mu.Unlock()
}

func (b *Bot) send(c tele.Context, text string, markup *tele.ReplyMarkup) {
	if err := c.Send(text, markup); err != nil {
		log.Error().Err(err).Msg("failed to send message")
	}
}

func (b *Bot) edit(c tele.Context, text string, markup *tele.ReplyMarkup) {
	if err := c.Edit(text, markup); err != nil {
		log.Error().Err(err).Msg("failed to edit message")
	}
}

func promoLine(p Person) string {
	if p.Promo != "" {
		return "Промокод: " + p.Promo
	}
	return "Без промокода (полная цена)"
}

func maskCard(number string) string {
	d := digits(number)
	if len(d) < 4 {
		return "****"
	}
	return "****" + d[len(d)-4:]
}

func splitSlot(data string) (date, timeRange string, ok bool) {
	parts := strings.SplitN(data, "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
