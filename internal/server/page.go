package server

import "html/template"

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Speech Emotion Recognition</title>
<style>
body { font-family: sans-serif; max-width: 40rem; margin: 3rem auto; }
table { border-collapse: collapse; margin-top: 1rem; }
td { padding: 0.2rem 1rem 0.2rem 0; }
.error { color: #b00020; }
</style>
</head>
<body>
<h1>Speech Emotion Recognition</h1>
<p>Upload a short speech clip ({{.Extensions}}) to classify its emotion.</p>
<form id="upload">
<input type="file" id="file" name="file" accept="{{.Accept}}">
<button type="submit">Predict</button>
</form>
<audio id="preview" controls hidden></audio>
<div id="result"></div>
<script>
const file = document.getElementById("file");
const preview = document.getElementById("preview");
const result = document.getElementById("result");
file.addEventListener("change", () => {
  if (!file.files.length) return;
  preview.src = URL.createObjectURL(file.files[0]);
  preview.hidden = false;
});
document.getElementById("upload").addEventListener("submit", async (e) => {
  e.preventDefault();
  if (!file.files.length) return;
  const body = new FormData();
  body.append("file", file.files[0]);
  result.textContent = "Analyzing...";
  const resp = await fetch("predict", { method: "POST", body });
  const data = await resp.json();
  if (!resp.ok) {
    result.innerHTML = "";
    const p = document.createElement("p");
    p.className = "error";
    p.textContent = data.error;
    result.appendChild(p);
    return;
  }
  result.innerHTML = "";
  const h = document.createElement("h2");
  h.textContent = "Predicted emotion: " + data.label;
  result.appendChild(h);
  const table = document.createElement("table");
  for (const c of data.probabilities) {
    const row = table.insertRow();
    row.insertCell().textContent = c.label;
    row.insertCell().textContent = c.percentage;
  }
  result.appendChild(table);
});
</script>
</body>
</html>
`))

type indexData struct {
	Extensions string
	Accept     string
}
