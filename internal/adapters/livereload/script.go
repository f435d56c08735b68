package livereload

import "net/http"

// Script is the browser client. Stylesheet changes are swapped in place,
// anything else reloads the page.
const Script = `(() => {
  if (window.__KILN_LR__) return;
  window.__KILN_LR__ = true;
  const origin = new URL(document.currentScript.src).origin;
  function refreshStyles(path) {
    for (const link of document.querySelectorAll('link[rel="stylesheet"]')) {
      const url = new URL(link.href);
      if (!path.endsWith(url.pathname.split('/').pop())) continue;
      url.searchParams.set('kiln', Date.now());
      link.href = url.toString();
      return true;
    }
    return false;
  }
  function connect() {
    const es = new EventSource(origin + '/livereload');
    es.onmessage = (e) => {
      try {
        const p = JSON.parse(e.data);
        if (p.path && p.path.endsWith('.css') && refreshStyles(p.path)) return;
        location.reload();
      } catch (_) {}
    };
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();
`

func serveScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = w.Write([]byte(Script))
}
