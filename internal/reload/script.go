package reload

import "strings"

// ScriptPath is where the dev server serves ClientScript.
const ScriptPath = "/livereload.js"

// Tag is the element injected into HTML pages before </body>.
const Tag = `<script async src="` + ScriptPath + `"></script>`

// ClientScript connects to the event stream, reloads the page on "reload",
// cache-busts stylesheets on "css" and logs "error" notices to the console.
var ClientScript = strings.TrimSpace(`
(() => {
  if (window.__ASSETBUILDER_LR__) return;
  window.__ASSETBUILDER_LR__ = true;
  function refreshCSS() {
    document.querySelectorAll('link[rel="stylesheet"]').forEach((link) => {
      const url = new URL(link.href, location.href);
      url.searchParams.set('_lr', Date.now().toString());
      link.href = url.toString();
    });
  }
  function handle(p) {
    if (p.kind === 'css') { refreshCSS(); return; }
    if (p.kind === 'error') { console.error('[assetbuilder] build failed: ' + (p.error || '')); return; }
    if (p.kind === 'reload') { console.log('[assetbuilder] change detected, reloading'); location.reload(); }
  }
  function connect() {
    const es = new EventSource('/livereload');
    es.onmessage = (e) => { try { handle(JSON.parse(e.data)); } catch (_) {} };
    es.onerror = () => { console.warn('[assetbuilder] livereload error - retrying'); es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();
`)
