package handlers

import (
	"fmt"
	"html"

	"github.com/gofiber/fiber/v2"
)

// PageHandler serves the two HTML shells and the health probe. The chat
// client itself is a separate bundle, these pages only bootstrap it.
type PageHandler struct{}

// NewPageHandler create page handler
func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Secure Chat Relay</title>
</head>
<body>
  <main>
    <h1>Secure Chat Relay</h1>
    <p>End-to-end encrypted rooms. The server only relays ciphertext.</p>
    <form id="create-room">
      <input name="name" placeholder="Room name" required>
      <input name="creatorName" placeholder="Your display name" required>
      <button type="submit">Create room</button>
    </form>
  </main>
  <script>
    document.getElementById('create-room').addEventListener('submit', async (e) => {
      e.preventDefault();
      const form = new FormData(e.target);
      const res = await fetch('/api/rooms', {
        method: 'POST',
        headers: {'Content-Type': 'application/json'},
        body: JSON.stringify({name: form.get('name'), creatorName: form.get('creatorName')})
      });
      const body = await res.json();
      if (body.success) window.location.href = body.inviteLink;
    });
  </script>
</body>
</html>`

const roomHTMLFmt = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Secure Chat Relay</title>
</head>
<body>
  <div id="app" data-room-id="%s"></div>
  <noscript>This chat client requires JavaScript.</noscript>
</body>
</html>`

// Landing godoc
// @Summary Landing page
// @Description Serves the room creation page.
// @Tags Pages
// @Produce html
// @Success 200 {string} string "HTML"
// @Router / [get]
func (h *PageHandler) Landing(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(landingHTML)
}

// RoomPage godoc
// @Summary Chat room page
// @Description Serves the chat shell for one room. Opening the page does not create the room, creation happens on join.
// @Tags Pages
// @Produce html
// @Param id path string true "Room ID"
// @Success 200 {string} string "HTML"
// @Router /room/{id} [get]
func (h *PageHandler) RoomPage(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(fmt.Sprintf(roomHTMLFmt, html.EscapeString(c.Params("id"))))
}

// Ping godoc
// @Summary Health probe
// @Description Plain 200, also the target of the self keep-alive loop.
// @Tags Pages
// @Produce plain
// @Success 200 {string} string "pong"
// @Router /ping [get]
func (h *PageHandler) Ping(c *fiber.Ctx) error {
	return c.SendString("pong")
}
