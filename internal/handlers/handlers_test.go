package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/woo-slack-tools/internal/models"
	"github.com/Ananth-NQI/woo-slack-tools/internal/services"
)

type putCall struct {
	Path string
	Body interface{}
}

// fakeWoo serves canned GET bodies by path and records every PUT.
type fakeWoo struct {
	mu      sync.Mutex
	gets    map[string]string
	getErrs map[string]error
	putErr  error
	getLog  []string
	puts    []putCall
}

func newFakeWoo() *fakeWoo {
	return &fakeWoo{gets: map[string]string{}, getErrs: map[string]error{}}
}

func (f *fakeWoo) Get(_ context.Context, path string, _ url.Values) (*services.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getLog = append(f.getLog, path)
	if err, ok := f.getErrs[path]; ok {
		return nil, err
	}
	body, ok := f.gets[path]
	if !ok {
		return nil, &services.HTTPStatusError{Method: http.MethodGet, Path: path, StatusCode: http.StatusNotFound}
	}
	return &services.Response{StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

func (f *fakeWoo) Put(_ context.Context, path string, body interface{}) (*services.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, putCall{Path: path, Body: body})
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &services.Response{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil
}

type upload struct {
	Channel  string
	Filename string
	Content  []byte
}

type fakeNotifier struct {
	mu       sync.Mutex
	channels []string
	messages []string
	blocks   [][]slack.Block
	uploads  []upload
}

func (f *fakeNotifier) Notify(_ context.Context, channelID, text string, blocks ...slack.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channelID)
	f.messages = append(f.messages, text)
	f.blocks = append(f.blocks, blocks)
	return nil
}

func (f *fakeNotifier) Upload(_ context.Context, channelID, filename string, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, upload{Channel: channelID, Filename: filename, Content: content})
	return nil
}

func (f *fakeNotifier) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1]
}

type fakeRenderer struct {
	html string
	err  error
}

func (f *fakeRenderer) Render(_ context.Context, html string) ([]byte, error) {
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4 fake"), nil
}

type fixture struct {
	h        *SlackHandler
	woo      *fakeWoo
	sessions *services.SessionManager
	notifier *fakeNotifier
	renderer *fakeRenderer
}

// newFixture runs jobs inline unless opts replace the spawner.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		woo:      newFakeWoo(),
		sessions: services.NewSessionManager(15 * time.Minute),
		notifier: &fakeNotifier{},
		renderer: &fakeRenderer{},
	}
	t.Cleanup(f.sessions.Close)

	h, err := NewSlackHandler(Deps{
		Woo:          f.woo,
		Sessions:     f.sessions,
		Notifier:     f.notifier,
		Renderer:     f.renderer,
		AdminEditURL: "https://shop.example.com/wp-admin/post.php?action=edit&post=",
	}, append([]Option{WithSpawn(func(job func()) { job() })}, opts...)...)
	require.NoError(t, err)
	f.h = h
	return f
}

func (f *fixture) app() *fiber.App {
	app := fiber.New()
	app.Post("/slack/draftproduct", f.h.DraftProduct)
	app.Post("/slack/priceupdate", f.h.PriceUpdate)
	app.Post("/slack/editorder", f.h.EditOrder)
	app.Post("/slack/editorderstatus", f.h.EditOrderStatus)
	app.Post("/slack/interact", f.h.HandleInteraction)
	return app
}

func postForm(t *testing.T, app *fiber.App, path string, form url.Values) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func command(userID, channelID, text string) url.Values {
	return url.Values{
		"command":    {"/cmd"},
		"text":       {text},
		"user_id":    {userID},
		"channel_id": {channelID},
	}
}

func click(userID, actionID, value string) *interaction {
	return &interaction{
		UserID:    userID,
		ChannelID: "C1",
		Action:    models.ActionPayload{ActionID: actionID, Value: value},
	}
}

func priceState(v string) models.BlockState {
	return models.BlockState{Values: map[string]map[string]models.InputValue{
		blockNewPrice: {actionNewPrice: {Type: "plain_text_input", Value: v}},
	}}
}

func TestNewSlackHandler_RequiresDeps(t *testing.T) {
	_, err := NewSlackHandler(Deps{})
	require.Error(t, err)
}

func TestPriceUpdate_EndToEnd(t *testing.T) {
	f := newFixture(t)
	f.woo.gets["/products"] = `[{"id":42,"name":"Blue Mug","sku":"SKU123","type":"simple","price":"19.99"}]`
	app := f.app()

	status, body := postForm(t, app, "/slack/priceupdate", command("U1", "C1", "  SKU123 "))
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "SKU123")

	session, ok := f.sessions.Get("U1")
	require.True(t, ok)
	sku, _ := session.String(keySKU)
	productID, _ := session.Int64(keyProductID)
	isVariation, _ := session.Bool(keyIsVariation)
	original, _ := session.String(keyOriginalPrice)
	require.Equal(t, "SKU123", sku)
	require.Equal(t, int64(42), productID)
	require.False(t, isVariation)
	require.Equal(t, "19.99", original)
	require.Contains(t, f.notifier.last(), "$19.99")

	// Another user clicking the prompt is turned away.
	intruder := click("U2", ActionConfirmPrice, "U1")
	intruder.State = priceState("1.00")
	f.h.Dispatch(context.Background(), intruder)
	require.Empty(t, f.woo.puts)
	require.Contains(t, f.notifier.last(), "original requester")
	require.True(t, f.sessions.Has("U1"))

	in := click("U1", ActionConfirmPrice, "U1")
	in.State = priceState("24.99")
	f.h.Dispatch(context.Background(), in)

	require.Len(t, f.woo.puts, 1)
	require.Equal(t, "/products/42", f.woo.puts[0].Path)
	require.Equal(t, map[string]string{"regular_price": "24.99"}, f.woo.puts[0].Body)
	require.False(t, f.sessions.Has("U1"))
	require.Equal(t, "✅ Price for *SKU123* updated to $24.99.", f.notifier.last())
}

func TestCommandJobs_KeepTheirOwnRequestData(t *testing.T) {
	var queued []func()
	f := newFixture(t, WithSpawn(func(job func()) { queued = append(queued, job) }))
	f.woo.gets["/products"] = `[{"id":42,"name":"Blue Mug","sku":"SKUAAA","type":"simple","price":"19.99"}]`
	app := f.app()

	// Same-length fields so a reused request buffer would be overwritten in place.
	postForm(t, app, "/slack/priceupdate", command("UAAAAA", "CAAAAA", "SKUAAA"))
	postForm(t, app, "/slack/priceupdate", command("UBBBBB", "CBBBBB", "SKUBBB"))
	require.Len(t, queued, 2)

	queued[0]()

	require.True(t, f.sessions.Has("UAAAAA"))
	require.False(t, f.sessions.Has("UBBBBB"))
	session, _ := f.sessions.Get("UAAAAA")
	sku, _ := session.String(keySKU)
	require.Equal(t, "SKUAAA", sku)
	require.Equal(t, []string{"CAAAAA"}, f.notifier.channels)
	require.Equal(t, "Current price for *SKUAAA* is $19.99.", f.notifier.last())

	queued[1]()

	require.True(t, f.sessions.Has("UBBBBB"))
	require.Equal(t, []string{"CAAAAA", "CBBBBB"}, f.notifier.channels)
}

func TestPriceUpdate_VariableProduct(t *testing.T) {
	f := newFixture(t)
	f.woo.gets["/products"] = `[{"id":7,"name":"Shirt","sku":"SHIRT-M","type":"variable","price":"10.00"}]`
	f.woo.gets["/products/7/variations"] = `[{"id":70,"sku":"SHIRT-S","price":"9.00"},{"id":71,"sku":"SHIRT-M","price":"11.00"}]`

	f.h.stagePriceUpdate(context.Background(), "U1", "C1", "SHIRT-M")

	session, ok := f.sessions.Get("U1")
	require.True(t, ok)
	variationID, _ := session.Int64(keyVariationID)
	isVariation, _ := session.Bool(keyIsVariation)
	require.True(t, isVariation)
	require.Equal(t, int64(71), variationID)

	in := click("U1", ActionConfirmPrice, "U1")
	in.State = priceState("$12.50")
	f.h.Dispatch(context.Background(), in)

	require.Len(t, f.woo.puts, 1)
	require.Equal(t, "/products/7/variations/71", f.woo.puts[0].Path)
	require.Equal(t, map[string]string{"regular_price": "12.5"}, f.woo.puts[0].Body)
}

func TestPriceUpdate_NoMatchingVariation(t *testing.T) {
	f := newFixture(t)
	f.woo.gets["/products"] = `[{"id":7,"name":"Shirt","sku":"SHIRT","type":"variable","price":"10.00"}]`
	f.woo.gets["/products/7/variations"] = `[{"id":70,"sku":"SHIRT-S","price":"9.00"}]`

	f.h.stagePriceUpdate(context.Background(), "U1", "C1", "SHIRT")

	require.False(t, f.sessions.Has("U1"))
	require.Contains(t, f.notifier.last(), "No matching variation")
}

func TestConfirmPrice_InvalidPriceKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set("U1", services.SessionData{keySKU: "SKU1", keyProductID: int64(1), keyIsVariation: false})

	in := click("U1", ActionConfirmPrice, "U1")
	in.State = priceState("-3")
	f.h.Dispatch(context.Background(), in)

	require.Empty(t, f.woo.puts)
	require.True(t, f.sessions.Has("U1"))
	require.Equal(t, "❌ Invalid price entered.", f.notifier.last())
}

func TestConfirm_ActorMismatchLeavesSession(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set("U1", services.SessionData{keyProductID: int64(5), keyProductName: "Lamp"})

	// U2 has no session and clicks U1's button.
	f.h.Dispatch(context.Background(), click("U2", ActionConfirmDraft, "U1"))

	require.Empty(t, f.woo.puts)
	require.True(t, f.sessions.Has("U1"))
	require.Contains(t, f.notifier.last(), "original requester")
}

func TestConfirm_NoSession(t *testing.T) {
	f := newFixture(t)

	f.h.Dispatch(context.Background(), click("U1", ActionConfirmDraft, "U1"))

	require.Empty(t, f.woo.puts)
	require.Contains(t, f.notifier.last(), "No session found")
}

func TestConfirm_IncompleteSession(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set("U1", services.SessionData{keyCustomerID: int64(3)})

	f.h.Dispatch(context.Background(), click("U1", ActionConfirmDraft, "U1"))

	require.Empty(t, f.woo.puts)
	require.Contains(t, f.notifier.last(), "Session expired")
}

func TestDraftProduct_FlowAndUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.woo.gets["/products"] = `[{"id":5,"name":"Lamp","sku":"L-1","price":"30.00"}]`
	app := f.app()

	status, body := postForm(t, app, "/slack/draftproduct", command("U1", "C1", "L-1"))
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "L-1")
	require.True(t, f.sessions.Has("U1"))

	f.woo.putErr = &services.HTTPStatusError{Method: http.MethodPut, Path: "/products/5", StatusCode: http.StatusServiceUnavailable}
	f.h.Dispatch(context.Background(), click("U1", ActionConfirmDraft, "U1"))

	require.Len(t, f.woo.puts, 1, "PUT is never retried")
	require.True(t, f.sessions.Has("U1"), "session survives an upstream failure")
	require.Contains(t, f.notifier.last(), "Failed to remove *Lamp*")

	f.woo.putErr = nil
	f.h.Dispatch(context.Background(), click("U1", ActionConfirmDraft, "U1"))

	require.Len(t, f.woo.puts, 2)
	require.Equal(t, "/products/5", f.woo.puts[1].Path)
	require.Equal(t, map[string]string{"status": "draft"}, f.woo.puts[1].Body)
	require.False(t, f.sessions.Has("U1"))
}

func TestDraftProduct_EmptySKU(t *testing.T) {
	f := newFixture(t)

	status, body := postForm(t, f.app(), "/slack/draftproduct", command("U1", "C1", "   "))

	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "❌ Please provide a SKU.", body)
	require.Empty(t, f.woo.getLog)
}

func TestDraftProduct_UnknownSKU(t *testing.T) {
	f := newFixture(t)
	f.woo.gets["/products"] = `[]`

	postForm(t, f.app(), "/slack/draftproduct", command("U1", "C1", "NOPE"))

	require.False(t, f.sessions.Has("U1"))
	require.Equal(t, "❌ No product found with SKU: NOPE", f.notifier.last())
}

func TestCancelWorkflow(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set("U1", services.SessionData{keySKU: "SKU1"})

	f.h.Dispatch(context.Background(), click("U2", ActionCancelPrice, "U1"))
	require.True(t, f.sessions.Has("U1"))

	f.h.Dispatch(context.Background(), click("U1", ActionCancelPrice, "U1"))
	require.False(t, f.sessions.Has("U1"))
	require.Equal(t, "❌ Price update canceled.", f.notifier.last())
	require.Empty(t, f.woo.puts)
}

func TestSaveCustomerMeta(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set("U1", services.SessionData{keyCustomerID: int64(12), keyEmail: "a@b.co"})

	in := click("U1", ActionSaveCustomerMeta, "U1")
	in.State = models.BlockState{Values: map[string]map[string]models.InputValue{
		blockCustomerCode:  {actionCustomerCode: {Value: "C-100"}},
		blockCustomerClass: {actionCustomerClass: {Value: ""}},
	}}
	f.h.Dispatch(context.Background(), in)

	require.Len(t, f.woo.puts, 1)
	require.Equal(t, "/customers/12", f.woo.puts[0].Path)
	body, ok := f.woo.puts[0].Body.(map[string]interface{})
	require.True(t, ok)
	meta, ok := body["meta_data"].([]models.MetaData)
	require.True(t, ok)
	require.Equal(t, models.MetaCustomerCode, meta[0].Key)
	require.Equal(t, "C-100", meta[0].Value)
	require.Equal(t, "", meta[1].Value)
	require.False(t, f.sessions.Has("U1"))
	require.Contains(t, f.notifier.last(), "_empty_")
}

func TestEditOrderStatus_NoOpWhenAlreadyInTarget(t *testing.T) {
	f := newFixture(t)
	f.woo.gets["/orders/1001"] = `{"id":1001,"status":"processing"}`

	ref := models.ActionRef{UserID: "U1", ObjectID: "1001", Target: "processing"}
	f.h.Dispatch(context.Background(), click("U1", ActionEditOrderStatus, ref.String()))

	require.Empty(t, f.woo.puts)
	require.Equal(t, "ℹ️ Order *1001* is already in *processing* status.", f.notifier.last())
}

func TestEditOrderStatus_Changes(t *testing.T) {
	f := newFixture(t)
	f.woo.gets["/orders/1001"] = `{"id":1001,"status":"pending"}`

	ref := models.ActionRef{UserID: "U1", ObjectID: "1001", Target: "completed"}
	f.h.Dispatch(context.Background(), click("U1", ActionEditOrderStatus, ref.String()))

	require.Len(t, f.woo.puts, 1)
	require.Equal(t, "/orders/1001", f.woo.puts[0].Path)
	require.Equal(t, map[string]string{"status": "completed"}, f.woo.puts[0].Body)
	require.Equal(t, "✅ Order *1001* status changed from *pending* to *completed*.", f.notifier.last())
}

func TestEditOrderStatus_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		user   string
		value  string
		expect string
	}{
		{"other user", "U2", "U1|1001|completed", "original requester"},
		{"malformed value", "U1", "garbage", "original requester"},
		{"unknown status", "U1", "U1|1001|shipped", "Invalid status"},
		{"bad order id", "U1", "U1|abc|completed", "Invalid status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.woo.gets["/orders/1001"] = `{"id":1001,"status":"pending"}`

			f.h.Dispatch(context.Background(), click(tt.user, ActionEditOrderStatus, tt.value))

			require.Empty(t, f.woo.puts)
			require.Empty(t, f.woo.getLog)
			require.Contains(t, f.notifier.last(), tt.expect)
		})
	}
}

func TestEditOrderStatus_CommandShowsButtons(t *testing.T) {
	f := newFixture(t)
	f.woo.gets["/orders/1001"] = `{"id":1001,"status":"processing","meta_data":[{"key":"_stripe_fee","value":1.23}]}`

	status, _ := postForm(t, f.app(), "/slack/editorderstatus", command("U1", "C1", "1001"))
	require.Equal(t, http.StatusOK, status)

	require.Len(t, f.notifier.blocks, 1)
	blocks := f.notifier.blocks[0]
	// summary + stripe section + five buttons
	require.Len(t, blocks, 7)
	stripe, ok := blocks[1].(*slack.SectionBlock)
	require.True(t, ok)
	require.Contains(t, stripe.Text.Text, "_stripe_fee: 1.23")
}

func TestEditOrder_Link(t *testing.T) {
	f := newFixture(t)

	status, body := postForm(t, f.app(), "/slack/editorder", command("U1", "C1", "x1"))
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "valid numeric Order ID")
	require.Empty(t, f.notifier.messages)

	postForm(t, f.app(), "/slack/editorder", command("U1", "C1", "55"))
	require.Equal(t, "✏️ Edit order <https://shop.example.com/wp-admin/post.php?action=edit&post=55|#55>", f.notifier.last())
}

func TestFindOrderByCustomNumber_StopsOnShortPage(t *testing.T) {
	f := newFixture(t)
	f.woo.gets["/orders"] = `[{"id":1,"meta_data":[{"key":"_alg_wc_custom_order_number","value":"A-1"}]}]`

	_, found, err := f.h.findOrderByCustomNumber(context.Background(), "A-2")
	require.NoError(t, err)
	require.False(t, found)
	require.Len(t, f.woo.getLog, 1)

	order, found, err := f.h.findOrderByCustomNumber(context.Background(), "A-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(1), order.ID)
}

func TestGenerateOrderPDF(t *testing.T) {
	f := newFixture(t)
	f.woo.gets["/mail-log/88"] = `{"mail_id":"88","subject":"New Order #4105: Thanks!","html":"<p>hi</p>"}`

	ref := models.ActionRef{UserID: "U1", ObjectID: "88"}
	f.h.Dispatch(context.Background(), click("U1", ActionOrderPDF, ref.String()))

	require.Equal(t, "<p>hi</p>", f.renderer.html)
	require.Len(t, f.notifier.uploads, 1)
	require.Equal(t, "New Order 4105 Thanks.pdf", f.notifier.uploads[0].Filename)
	require.Equal(t, "C1", f.notifier.uploads[0].Channel)
	require.Equal(t, "✅ PDF uploaded: *New Order 4105 Thanks.pdf*", f.notifier.last())
}

func TestGenerateOrderPDF_Failures(t *testing.T) {
	t.Run("other user", func(t *testing.T) {
		f := newFixture(t)
		f.h.Dispatch(context.Background(), click("U2", ActionOrderPDF, "U1|88"))
		require.Empty(t, f.woo.getLog)
		require.Contains(t, f.notifier.last(), "original requester")
	})

	t.Run("empty html", func(t *testing.T) {
		f := newFixture(t)
		f.woo.gets["/mail-log/88"] = `{"mail_id":88,"subject":"x","html":"  "}`
		f.h.Dispatch(context.Background(), click("U1", ActionOrderPDF, "U1|88"))
		require.Empty(t, f.notifier.uploads)
		require.Equal(t, "❌ No HTML content found for that log.", f.notifier.last())
	})

	t.Run("render error", func(t *testing.T) {
		f := newFixture(t)
		f.woo.gets["/mail-log/88"] = `{"mail_id":88,"subject":"x","html":"<b>x</b>"}`
		f.renderer.err = errors.New("chrome exited")
		f.h.Dispatch(context.Background(), click("U1", ActionOrderPDF, "U1|88"))
		require.Empty(t, f.notifier.uploads)
		require.Equal(t, "❌ Could not produce a PDF for that email.", f.notifier.last())
	})
}

func TestDispatch_UnsupportedAction(t *testing.T) {
	f := newFixture(t)

	f.h.Dispatch(context.Background(), click("U1", "launch_rockets", "U1"))

	require.Equal(t, "⚠️ Unsupported action.", f.notifier.last())
	require.Empty(t, f.woo.puts)
}

func TestHandleInteraction(t *testing.T) {
	payload := func(p models.InteractionPayload) url.Values {
		raw, err := json.Marshal(p)
		require.NoError(t, err)
		return url.Values{"payload": {string(raw)}}
	}
	valid := models.InteractionPayload{
		Type:    "block_actions",
		User:    models.SlackRef{ID: "U1"},
		Channel: models.SlackRef{ID: "C1"},
		Actions: []models.ActionPayload{{ActionID: ActionCancelDraft, Value: "U1"}},
	}

	tests := []struct {
		name   string
		form   url.Values
		status int
	}{
		{"missing payload", url.Values{}, http.StatusBadRequest},
		{"bad json", url.Values{"payload": {"{nope"}}, http.StatusBadRequest},
		{"no actions", payload(models.InteractionPayload{User: valid.User, Channel: valid.Channel}), http.StatusBadRequest},
		{"no channel", payload(models.InteractionPayload{User: valid.User, Actions: valid.Actions}), http.StatusBadRequest},
		{"valid", payload(valid), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.sessions.Set("U1", services.SessionData{keyProductID: int64(1)})

			status, _ := postForm(t, f.app(), "/slack/interact", tt.form)
			require.Equal(t, tt.status, status)

			if tt.status == http.StatusOK {
				require.False(t, f.sessions.Has("U1"))
				require.Equal(t, "❌ Removal canceled.", f.notifier.last())
			} else {
				require.Empty(t, f.notifier.messages)
			}
		})
	}
}

func TestRunJob_RecoversPanic(t *testing.T) {
	f := newFixture(t)
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		f.h.runJob(c, "boom", func(context.Context) { panic("boom") })
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
