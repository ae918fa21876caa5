package widget

import "html/template"

var pageTmpl = template.Must(template.New("checkout").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Name}} checkout</title>
<script src="checkout.js"></script>
</head>
<body>
<p id="status">{{.Description}}</p>
<script>
(function () {
  var base = window.location.pathname.replace(/\/$/, "");
  var status = document.getElementById("status");
  function post(kind, body) {
    return fetch(base + "/callback/" + kind, {
      method: "POST",
      headers: {"Content-Type": "application/json"},
      body: JSON.stringify(body || {})
    });
  }
  function finish(text) {
    status.textContent = text + " You can close this tab.";
  }
  var options = {{.Options}};
  options.handler = function (resp) {
    post("success", resp).then(function () { finish("Payment complete."); });
  };
  options.modal = {
    ondismiss: function () {
      post("dismiss").then(function () { finish("Checkout closed."); });
    }
  };
  if (typeof Razorpay === "undefined") {
    post("failure", {error: {code: "SCRIPT_ERROR", description: "checkout unavailable"}});
    finish("Checkout could not be loaded.");
    return;
  }
  var rzp = new Razorpay(options);
  rzp.on("payment.failed", function (resp) {
    post("failure", {error: resp.error}).then(function () {
      finish("Payment failed: " + resp.error.description + ".");
    });
  });
  rzp.open();
})();
</script>
</body>
</html>
`))

type pageData struct {
	Name        string
	Description string
	Options     map[string]any
}
