package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"net/http"
)

// frontendHTML is a small annotation page. It draws the server-rendered
// scene and forwards pointer events and toolbar commands to the editor API.
const frontendHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Limes - Range Annotation</title>
    <style>
        :root {
            --primary: #2563eb;
            --error: #dc2626;
            --bg: #f8fafc;
            --card: #ffffff;
            --text: #1e293b;
            --text-muted: #64748b;
            --border: #e2e8f0;
            --radius: 8px;
        }

        * { box-sizing: border-box; margin: 0; padding: 0; }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg);
            color: var(--text);
            display: flex;
            flex-direction: column;
            height: 100vh;
        }

        header {
            display: flex;
            flex-wrap: wrap;
            gap: 0.5rem;
            align-items: center;
            padding: 0.5rem 1rem;
            border-bottom: 1px solid var(--border);
            background: var(--card);
        }

        header h1 { font-size: 1.1rem; margin-right: 1rem; }

        button, select {
            border: 1px solid var(--border);
            border-radius: var(--radius);
            background: var(--card);
            padding: 0.35rem 0.7rem;
            font-size: 0.9rem;
            cursor: pointer;
        }

        button.primary { background: var(--primary); color: #fff; border-color: var(--primary); }

        main { flex: 1; display: flex; min-height: 0; }

        #map {
            flex: 1;
            position: relative;
            overflow: hidden;
            background: #dfe7ee;
            touch-action: none;
        }

        #map svg { position: absolute; inset: 0; }

        aside {
            width: 280px;
            overflow-y: auto;
            border-left: 1px solid var(--border);
            background: var(--card);
            padding: 0.75rem;
        }

        aside h2 { font-size: 0.95rem; margin-bottom: 0.5rem; }

        .polygon {
            border: 1px solid var(--border);
            border-radius: var(--radius);
            padding: 0.5rem;
            margin-bottom: 0.5rem;
            font-size: 0.85rem;
        }

        .polygon .actions { display: flex; gap: 0.25rem; margin-top: 0.35rem; }
        .polygon .actions button { padding: 0.15rem 0.5rem; font-size: 0.8rem; }

        #notice { color: var(--error); font-size: 0.85rem; min-height: 1.2em; }
        .muted { color: var(--text-muted); }
    </style>
</head>
<body>
    <header>
        <h1>Limes</h1>
        <select id="annotation">
            <option>SUSPICIOUS</option>
            <option>NATIVE</option>
            <option>MANAGED</option>
            <option>FORMER</option>
            <option>VAGRANT</option>
        </select>
        <button data-draw="polygon">Polygon</button>
        <button data-draw="rectangle">Rectangle</button>
        <button data-draw="latband">Lat band</button>
        <button class="primary" data-post="editor/finish">Finish</button>
        <button data-post="editor/cancel">Cancel</button>
        <button data-post="editor/densify">Densify</button>
        <button data-post="editor/decimate">Decimate</button>
        <button data-delete="editor/edit">Done editing</button>
        <a href="/api/v1/polygons/export"><button>Export</button></a>
        <span id="notice"></span>
    </header>
    <main>
        <div id="map"></div>
        <aside>
            <h2>Polygons</h2>
            <div id="polygons" class="muted">Loading...</div>
        </aside>
    </main>

    <script>
        const API = '/api/v1/';
        const map = document.getElementById('map');
        const notice = document.getElementById('notice');

        async function call(method, path, body) {
            const opts = { method, headers: {} };
            if (body !== undefined) {
                opts.headers['Content-Type'] = 'application/json';
                opts.body = JSON.stringify(body);
            }
            const res = await fetch(API + path, opts);
            if (!res.ok) {
                const err = await res.json().catch(() => ({}));
                notice.textContent = err.message || err.error || res.statusText;
                setTimeout(() => { notice.textContent = ''; }, 4000);
                return null;
            }
            return res.status === 204 ? {} : res.json().catch(() => ({}));
        }

        async function refresh() {
            const res = await fetch(API + 'scene.svg');
            map.innerHTML = await res.text();
            const data = await call('GET', 'polygons');
            if (data) renderList(data.polygons);
        }

        function renderList(polygons) {
            const list = document.getElementById('polygons');
            list.innerHTML = '';
            if (!polygons.length) {
                list.textContent = 'No polygons yet.';
                return;
            }
            for (const p of polygons) {
                const el = document.createElement('div');
                el.className = 'polygon';
                const label = document.createElement('div');
                label.textContent = p.annotation + (p.species ? ' - ' + p.species.scientificName : '');
                el.appendChild(label);
                const actions = document.createElement('div');
                actions.className = 'actions';
                const buttons = [
                    ['Edit', () => call('POST', 'editor/edit/' + p.id)],
                    ['Locate', () => call('POST', 'polygons/' + p.id + '/locate').then(() => call('POST', 'viewport/settle'))],
                    ['Invert', () => call('POST', 'polygons/' + p.id + '/invert')],
                    ['Delete', () => call('DELETE', 'polygons/' + p.id)],
                ];
                for (const [text, fn] of buttons) {
                    const b = document.createElement('button');
                    b.textContent = text;
                    b.onclick = () => fn().then(refresh);
                    actions.appendChild(b);
                }
                el.appendChild(actions);
                list.appendChild(el);
            }
        }

        function pointer(type, e) {
            const r = map.getBoundingClientRect();
            return call('POST', 'editor/pointer', {
                type,
                x: e.clientX - r.left,
                y: e.clientY - r.top,
                button: e.button === 2 ? 1 : 0,
            });
        }

        let pressed = false;
        map.addEventListener('pointerdown', e => { pressed = true; pointer('down', e); });
        map.addEventListener('pointermove', e => { if (pressed) pointer('move', e).then(refresh); });
        map.addEventListener('pointerup', e => { pressed = false; pointer('up', e).then(refresh); });
        map.addEventListener('pointerleave', e => { if (pressed) { pressed = false; pointer('leave', e).then(refresh); } });
        map.addEventListener('dblclick', e => pointer('dblclick', e).then(refresh));
        map.addEventListener('contextmenu', e => { e.preventDefault(); pointer('contextmenu', e).then(refresh); });

        document.querySelectorAll('[data-draw]').forEach(b => {
            b.onclick = () => call('POST', 'editor/draw', { mode: b.dataset.draw }).then(refresh);
        });
        document.querySelectorAll('[data-post]').forEach(b => {
            b.onclick = () => call('POST', b.dataset.post).then(refresh);
        });
        document.querySelectorAll('[data-delete]').forEach(b => {
            b.onclick = () => call('DELETE', b.dataset.delete).then(refresh);
        });
        document.getElementById('annotation').onchange = e => {
            call('PUT', 'selection', { annotation: e.target.value });
        };

        async function resize() {
            const r = map.getBoundingClientRect();
            await call('PUT', 'viewport/size', { width: Math.round(r.width), height: Math.round(r.height) });
            refresh();
        }

        window.addEventListener('resize', resize);
        resize();
    </script>
</body>
</html>
`

// handleFrontend serves the annotation page.
func (s *Server) handleFrontend(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(frontendHTML))
}
