package viewer

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>tikka</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #333; }
form { margin-bottom: 1em; }
#symbol { width: 24em; }
.message-area { min-height: 1.5em; color: #b00; white-space: pre-line; }
.meta { color: #777; font-size: 0.9em; }
</style>
</head>
<body>
<form id="subscribe">
  <input id="symbol" name="symbol" list="symbols" autocomplete="off" placeholder="Symbol, e.g. AAPL">
  <datalist id="symbols"></datalist>
  <button id="go" type="submit">Go</button>
</form>
<div class="message-area" id="status"></div>
<img id="chart" src="/chart.png" alt="price chart">
<div class="meta" id="meta"></div>
<script>
const refreshMillis = {{.RefreshMillis}};
const hint = {{.Hint}};
const form = document.getElementById("subscribe");
const input = document.getElementById("symbol");
const go = document.getElementById("go");
const statusArea = document.getElementById("status");

form.addEventListener("submit", async (e) => {
  e.preventDefault();
  const symbol = input.value.trim();
  if (!symbol) { statusArea.innerText = hint; return; }
  go.disabled = true;
  try {
    const resp = await fetch("/api/subscription", {
      method: "POST",
      headers: {"Content-Type": "application/json"},
      body: JSON.stringify({symbol: symbol})
    });
    const body = await resp.json();
    statusArea.innerText = resp.ok ? "" : (body.hint || body.error);
  } finally {
    go.disabled = false;
  }
});

input.addEventListener("input", async () => {
  const q = input.value.trim();
  if (!q) return;
  const resp = await fetch("/api/symbols?q=" + encodeURIComponent(q));
  const list = document.getElementById("symbols");
  list.innerHTML = "";
  for (const e of await resp.json()) {
    const opt = document.createElement("option");
    opt.value = e.value;
    opt.label = e.text;
    list.appendChild(opt);
  }
});

async function refresh() {
  document.getElementById("chart").src = "/chart.png?t=" + Date.now();
  try {
    const st = await (await fetch("/api/state")).json();
    if (st.status && st.status.text) statusArea.innerText = st.status.text;
    document.getElementById("meta").innerText =
      st.connection + " | " + (st.subscription || "no symbol") + " | " + st.samples + " samples";
  } catch (err) {
    console.log(err);
  }
}
setInterval(refresh, refreshMillis);
</script>
</body>
</html>
`
